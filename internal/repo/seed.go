// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file bootstraps databases for production (a single
// admin account) and development (fake users, configs, and a job history).
package repo

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/plugtrack/go-plugtrack-backend/internal/domain"
)

// SeedProd creates the initial admin account if no users exist yet. Safe to
// run on every boot.
func SeedProd(ctx context.Context, db *gorm.DB, email, password string) error {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = CreateUser(ctx, db, email, string(hash))
	return err
}

// SeedDev populates an empty database with test data: three users, four plug
// configs, and one hundred completed jobs with a realistic status mix (80%
// finished, 10% failed, 10% stopped). Runs only when the users table is
// empty.
func SeedDev(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 1; i <= 3; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte(fmt.Sprintf("password%d", i)), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if _, err := CreateUser(ctx, db, fmt.Sprintf("user%d@email.com", i), string(hash)); err != nil {
			return err
		}
	}

	for i := 4; i <= 7; i++ {
		cfg := &domain.PlugConfig{
			Name:             fmt.Sprintf("%d-Pin Plug", i),
			CureProfile:      randomBitString(rng, i),
			HorizontalOffset: randomDim(rng),
			VerticalOffset:   randomDim(rng),
			HorizontalGap:    randomDim(rng),
			VerticalGap:      randomDim(rng),
			SlotGap:          randomDim(rng),
		}
		if err := CreateConfig(ctx, db, cfg); err != nil {
			return err
		}
	}

	now := time.Now()
	for i := 0; i < 100; i++ {
		start := now.Add(-time.Duration(20+rng.Intn(81)) * time.Minute)
		end := start.Add(time.Duration(20+rng.Intn(81)) * time.Minute)
		dur := end.Sub(start).Seconds()

		status := domain.StatusFinished
		switch r := rng.Float64(); {
		case r >= 0.9:
			status = domain.StatusStopped
		case r >= 0.8:
			status = domain.StatusFailed
		}

		job := &domain.PlugJob{
			ConfigID:  uint(1 + rng.Intn(4)),
			Status:    status,
			StartTime: start,
			EndTime:   &end,
			Duration:  &dur,
		}
		if err := CreateJob(ctx, db, job); err != nil {
			return err
		}
	}
	return nil
}

// randomBitString builds a cure profile of n random 0/1 characters.
func randomBitString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + rng.Intn(2))
	}
	return string(b)
}

// randomDim returns a plausible machine dimension in the 0.1–5.0 range,
// rounded to two decimals.
func randomDim(rng *rand.Rand) float64 {
	v := 0.1 + rng.Float64()*4.9
	return float64(int(v*100)) / 100
}
