package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/credential"
)

// addAdmin creates an admin account, or refreshes the password of an
// existing one and reactivates it. An empty password means generate one
// and print it; this is the only time it is shown.
func (cli *commandLine) addAdmin(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	generated := false
	if pwd == "" {
		var err error
		if pwd, err = credential.GenerateSecurePassword(0); err != nil {
			return err
		}
		generated = true
	}
	hash, err := credential.Hash(pwd)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	profile, err := cli.repo.GetProfile(ctx, account.GetFilter{Email: email})
	switch err {
	case nil:
		if !profile.IsAdmin() {
			return fmt.Errorf("%s is not an admin account", email)
		}
		if err = cli.repo.UpdatePasswordHash(ctx, profile.UserID, hash, now); err != nil {
			return err
		}
		if err = cli.repo.SetActive(ctx, profile.UserID, true, now); err != nil {
			return err
		}
	case account.ErrNotFound:
		_, err = cli.repo.CreateProfile(ctx, account.Profile{
			UserID:       uuid.New().String(),
			Role:         account.RoleAdmin,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
	default:
		return err
	}

	if generated {
		fmt.Printf("Generated password: %s\n", pwd)
	}
	return nil
}
