// Package billing implements the subscription collaborator. Checkout is a
// local simulation: a snapshot of the purchase is persisted per user and
// status checks recompute the subscription state from it.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"verba/internal/domain"
	"verba/internal/ports"
)

const (
	monthlyPeriodDays = 30
	yearlyPeriodDays  = 365
)

// Service implements ports.Billing over a blob store.
type Service struct {
	blobs     ports.BlobStore
	logger    *zap.Logger
	trialDays int
	now       func() time.Time
}

func NewService(blobs ports.BlobStore, logger *zap.Logger, trialDays int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if trialDays <= 0 {
		trialDays = 7
	}
	return &Service{blobs: blobs, logger: logger, trialDays: trialDays, now: time.Now}
}

func checkoutKey(userID string) string {
	return "checkout_" + userID
}

// Plans returns the subscription offerings.
func (s *Service) Plans() []domain.Plan {
	return []domain.Plan{
		{
			ID:       "monthly",
			Name:     "Monthly",
			Price:    16.99,
			Interval: "month",
			Features: []string{
				"Unlimited transcriptions",
				"Advanced AI processing",
				"Priority support",
				"Cancel anytime",
			},
			PriceID: "prod_S5zkNoVALMjxHI",
		},
		{
			ID:       "yearly",
			Name:     "Yearly",
			Price:    156,
			Interval: "year",
			Features: []string{
				"Everything in monthly plan",
				"2 months free",
				"Higher usage limits",
				"Premium support",
			},
			PriceID: "prod_S5zlpKPejeenE4",
		},
	}
}

// CheckStatus recomputes the subscription state from the stored checkout
// snapshot. Missing or corrupt snapshots read as inactive.
func (s *Service) CheckStatus(ctx context.Context, userID string) (domain.SubscriptionStatus, error) {
	if userID == "" {
		return domain.SubscriptionStatus{}, domain.ErrNotAuthenticated
	}

	payload, found, err := s.blobs.Get(ctx, checkoutKey(userID))
	if err != nil {
		return domain.SubscriptionStatus{}, err
	}
	if !found {
		return domain.SubscriptionStatus{}, nil
	}

	var snapshot domain.CheckoutSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		s.logger.Warn("discarding corrupt checkout snapshot",
			zap.String("user_id", userID), zap.Error(err))
		return domain.SubscriptionStatus{}, nil
	}

	now := s.now()
	periodEnd := snapshot.CurrentPeriodEnd
	if periodEnd.IsZero() {
		periodEnd = snapshot.Date.AddDate(0, 0, periodDays(snapshot.Plan))
	}

	status := domain.SubscriptionStatus{
		Active:           now.Before(periodEnd),
		Plan:             snapshot.Plan,
		CurrentPeriodEnd: &periodEnd,
	}
	if snapshot.TrialEnd != nil {
		trialEnd := *snapshot.TrialEnd
		status.TrialEnd = &trialEnd
		status.InTrial = now.Before(trialEnd)
	}
	return status, nil
}

// CreateCheckoutSession persists the checkout snapshot and returns the
// redirect target the UI navigates to on success.
func (s *Service) CreateCheckoutSession(ctx context.Context, planID, userID, email string, isTrial bool) (string, error) {
	if userID == "" {
		return "", domain.ErrNotAuthenticated
	}
	if planID == "" {
		return "", fmt.Errorf("plan ID is required")
	}

	now := s.now()
	plan := planType(planID)
	snapshot := domain.CheckoutSnapshot{
		Date:             now,
		Plan:             plan,
		Status:           "active",
		InTrial:          isTrial,
		CurrentPeriodEnd: now.AddDate(0, 0, periodDays(plan)),
	}
	if isTrial {
		trialEnd := now.AddDate(0, 0, s.trialDays)
		snapshot.TrialEnd = &trialEnd
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode checkout snapshot: %w", err)
	}
	if err := s.blobs.Put(ctx, checkoutKey(userID), payload); err != nil {
		return "", err
	}

	s.logger.Info("checkout session created",
		zap.String("user_id", userID),
		zap.String("plan", plan),
		zap.Bool("trial", isTrial))
	return "/transcribe?checkout=success&plan=" + planID, nil
}

func planType(planID string) string {
	if strings.Contains(planID, "yearly") {
		return "yearly"
	}
	return "monthly"
}

func periodDays(plan string) int {
	if plan == "yearly" {
		return yearlyPeriodDays
	}
	return monthlyPeriodDays
}
