package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jansarthi-be/models"
	"jansarthi-be/store"
	"jansarthi-be/utils"
)

var errInvalidMobile = errors.New("invalid mobile number format")

// seedPWDWorker creates an active, verified PWD worker. A user already
// registered with the number is promoted in place.
func seedPWDWorker(ctx context.Context, users store.Users, name, mobile string, now time.Time) (*models.User, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, errors.New("name is required")
	}
	compact := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(mobile))
	if !utils.MobilePattern.MatchString(compact) {
		return nil, false, errInvalidMobile
	}
	mobile = utils.NormalizePhone(compact)

	existing, err := users.GetUserByMobile(ctx, mobile)
	switch {
	case err == nil:
		existing.Role = models.RolePWDWorker
		existing.IsActive = true
		existing.IsVerified = true
		existing.UpdatedAt = now
		if err := users.UpdateUser(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("promote user %d: %w", existing.ID, err)
		}
		return existing, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, fmt.Errorf("look up %s: %w", utils.MaskPhone(mobile), err)
	}

	u := &models.User{
		Name:         name,
		MobileNumber: mobile,
		Role:         models.RolePWDWorker,
		IsActive:     true,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.CreateUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create PWD worker: %w", err)
	}
	return u, true, nil
}
