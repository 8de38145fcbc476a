package utils

// ContextKey is the type used for request-scoped context values
type ContextKey string

// Context keys for request-scoped values
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
	AdminIDKey    ContextKey = "admin_id"
	AdminRoleKey  ContextKey = "admin_role"
)
