package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/propline/propline/app/dto"
	"github.com/propline/propline/app/services"
	"github.com/propline/propline/models"
	"github.com/propline/propline/repository"
	"github.com/propline/propline/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminAuthFlow represents the back-office authentication flow used by handlers
type AdminAuthFlow interface {
	InitCaptcha(ctx context.Context) (*dto.AdminCaptchaInitResponse, error)
	Verify(ctx context.Context, req *dto.AdminCaptchaVerifyRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	Refresh(ctx context.Context, req *dto.AdminRefreshTokenRequest) (*dto.AdminSessionDTO, error)
}

// AdminAuthFlowImpl provides captcha-init and credential verification
type AdminAuthFlowImpl struct {
	adminRepo    repository.AdminRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	captchaSvc   services.CaptchaService
	db           *gorm.DB
	tokenTTL     time.Duration
}

func NewAdminAuthFlow(
	adminRepo repository.AdminRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	captchaSvc services.CaptchaService,
	db *gorm.DB,
	tokenTTL time.Duration,
) AdminAuthFlow {
	return &AdminAuthFlowImpl{
		adminRepo:    adminRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		captchaSvc:   captchaSvc,
		db:           db,
		tokenTTL:     tokenTTL,
	}
}

func (af *AdminAuthFlowImpl) InitCaptcha(ctx context.Context) (*dto.AdminCaptchaInitResponse, error) {
	if af.captchaSvc == nil {
		return nil, NewBusinessError("CAPTCHA_NOT_AVAILABLE", "Captcha service not available", nil)
	}
	ch, err := af.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to initialize captcha", err)
	}
	return &dto.AdminCaptchaInitResponse{
		ChallengeID:       ch.ID,
		MasterImageBase64: ch.MasterImageBase64,
		ThumbImageBase64:  ch.ThumbImageBase64,
	}, nil
}

func (af *AdminAuthFlowImpl) Verify(ctx context.Context, req *dto.AdminCaptchaVerifyRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	// Validate request
	if req == nil {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Login validation failed", ErrAdminNotFound)
	}
	if len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Login validation failed", ErrIncorrectPassword)
	}
	if len(req.ChallengeID) == 0 {
		return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha challenge missing", ErrInvalidCaptcha)
	}

	// Verify captcha first
	if af.captchaSvc == nil || !af.captchaSvc.VerifyRotate(ctx, req.ChallengeID, req.UserAngle) {
		return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha validation failed", ErrInvalidCaptcha)
	}

	// Lookup account
	admin, err := af.adminRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup account", err)
	}
	if admin == nil {
		af.audit(ctx, nil, models.AuditActionLoginFailed, fmt.Sprintf("unknown username %q", req.Username), false, metadata)
		return nil, NewBusinessError("ADMIN_NOT_FOUND", "Admin not found", ErrAdminNotFound)
	}
	if !utils.IsTrue(admin.IsActive) {
		af.audit(ctx, &admin.ID, models.AuditActionLoginFailed, "account inactive", false, metadata)
		return nil, NewBusinessError("ADMIN_INACTIVE", "Account is inactive", ErrAdminInactive)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		af.audit(ctx, &admin.ID, models.AuditActionLoginFailed, "incorrect password", false, metadata)
		return nil, NewBusinessError("ADMIN_INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	// Generate tokens
	accessToken, refreshToken, err := af.tokenService.GenerateAdminTokens(admin.ID, admin.Role)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	now := utils.UTCNow()
	if err := af.adminRepo.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		return nil, NewBusinessError("ADMIN_UPDATE_FAILED", "Failed to record login", err)
	}
	af.audit(ctx, &admin.ID, models.AuditActionLoginSuccessful, "login successful", true, metadata)

	return &dto.AdminLoginResponse{
		Admin: ToAdminDTO(*admin),
		Session: dto.AdminSessionDTO{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int(af.tokenTTL.Seconds()),
			TokenType:    "Bearer",
			CreatedAt:    now.Format(time.RFC3339),
		},
	}, nil
}

func (af *AdminAuthFlowImpl) Refresh(ctx context.Context, req *dto.AdminRefreshTokenRequest) (*dto.AdminSessionDTO, error) {
	if req == nil || req.RefreshToken == "" {
		return nil, NewBusinessError("REFRESH_TOKEN_REQUIRED", "Refresh token is required", services.ErrTokenInvalid)
	}

	accessToken, refreshToken, err := af.tokenService.RefreshAdminToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_TOKEN_INVALID", "Invalid refresh token", err)
	}

	return &dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(af.tokenTTL.Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    utils.UTCNow().Format(time.RFC3339),
	}, nil
}

func (af *AdminAuthFlowImpl) audit(ctx context.Context, adminID *uint, action, description string, success bool, metadata *ClientMetadata) {
	if af.auditRepo == nil {
		return
	}
	entry := &models.AuditLog{
		AdminID:     adminID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(success),
		CreatedAt:   utils.UTCNow(),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	// Audit writes never block the flow
	_ = af.auditRepo.Save(ctx, entry)
}
