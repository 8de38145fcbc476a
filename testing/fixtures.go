// Package testing provides test utilities and database setup for testing the brokerage admin service
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/propline/propline/models"
	"github.com/propline/propline/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAdmin creates an admin account with the given role and a known password
func (tf *TestFixtures) CreateTestAdmin(role string) (*models.Admin, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		Username:     fmt.Sprintf("admin_%d", rand.Intn(10000000)),
		PasswordHash: string(hashedPassword),
		Role:         role,
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}

	return admin, nil
}

// CreateTestRecipients inserts n distribution list members, all active
func (tf *TestFixtures) CreateTestRecipients(n int) ([]*models.EmailRecipient, error) {
	var recipients []*models.EmailRecipient
	for i := 0; i < n; i++ {
		r := &models.EmailRecipient{
			Email:    fmt.Sprintf("recipient%d.%d@example.com", i+1, rand.Intn(10000000)),
			Name:     utils.ToPtr(fmt.Sprintf("Recipient %d", i+1)),
			IsActive: utils.ToPtr(true),
		}
		if err := tf.DB.DB.Create(r).Error; err != nil {
			return nil, fmt.Errorf("failed to create test recipient %d: %w", i, err)
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}

// CreateTestBatchRecipients appends n rows to the positional batch list
func (tf *TestFixtures) CreateTestBatchRecipients(n int) ([]*models.BatchRecipient, error) {
	var rows []*models.BatchRecipient
	for i := 0; i < n; i++ {
		r := &models.BatchRecipient{
			Email:    fmt.Sprintf("batch%d.%d@example.com", i+1, rand.Intn(10000000)),
			Position: int64(i + 1),
		}
		if err := tf.DB.DB.Create(r).Error; err != nil {
			return nil, fmt.Errorf("failed to create test batch recipient %d: %w", i, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// CreateTestListings inserts n active listings assigned to the given cycle group
func (tf *TestFixtures) CreateTestListings(cycleGroup, n int) ([]*models.Listing, error) {
	var listings []*models.Listing
	for i := 0; i < n; i++ {
		l := &models.Listing{
			Title:      fmt.Sprintf("Listing %d (cycle %d)", i+1, cycleGroup),
			Address:    fmt.Sprintf("%d Test Street", 100+i),
			Price:      int64(250000 + i*10000),
			CycleGroup: cycleGroup,
			IsActive:   utils.ToPtr(true),
		}
		if err := tf.DB.DB.Create(l).Error; err != nil {
			return nil, fmt.Errorf("failed to create test listing %d: %w", i, err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// SeedRotation inserts the three default schedule rows and a rotation state
// pointing at the given cycle with the given next run time.
func (tf *TestFixtures) SeedRotation(currentCycle int, nextRunAt time.Time) (*models.CycleRotationState, error) {
	defaults := map[int]int{
		1: models.DefaultCycleOneDay,
		2: models.DefaultCycleTwoDay,
		3: models.DefaultCycleThreeDay,
	}
	for cycle := 1; cycle <= utils.CycleCount; cycle++ {
		cfg := &models.CycleRotationConfig{
			CycleNumber: cycle,
			DayOfMonth:  defaults[cycle],
		}
		if err := tf.DB.DB.Create(cfg).Error; err != nil {
			return nil, fmt.Errorf("failed to seed rotation config for cycle %d: %w", cycle, err)
		}
	}

	state := &models.CycleRotationState{
		CurrentCycle: currentCycle,
		NextRunAt:    nextRunAt,
	}
	if err := tf.DB.DB.Create(state).Error; err != nil {
		return nil, fmt.Errorf("failed to seed rotation state: %w", err)
	}
	return state, nil
}

// CreateTestCycleRun inserts one ledger row
func (tf *TestFixtures) CreateTestCycleRun(cycleNumber int, status string, recipientCount int) (*models.CycleRun, error) {
	run := &models.CycleRun{
		CycleNumber:    cycleNumber,
		Status:         models.CycleRunStatus(status),
		RecipientCount: recipientCount,
		SentCount:      recipientCount,
		ScheduledFor:   utils.UTCNow(),
		SentAt:         utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create test cycle run: %w", err)
	}
	return run, nil
}
