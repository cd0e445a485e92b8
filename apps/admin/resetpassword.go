package main

import (
	"context"
	"time"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/credential"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()

	profile, err := cli.repo.GetProfile(ctx, account.GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	hash, err := credential.Hash(pwd)
	if err != nil {
		return err
	}
	return cli.repo.UpdatePasswordHash(ctx, profile.UserID, hash, time.Now().UTC())
}
