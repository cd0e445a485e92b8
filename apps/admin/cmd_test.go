package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/credential"
	inmemdb "github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, account.Repository) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	repo := inmemdb.NewAccountRepository(db)
	return &commandLine{
		conf: core.NewConfig(),
		repo: repo,
	}, repo
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	migrateRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version", "fix": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli, repo := setup(t)
	ctx := context.Background()

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("adm1np4ss"), nil }

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no email", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "new admin", args: []string{"addadmin", "-email", "head@kuet.ac.bd"}},
		{name: "existing admin refresh", args: []string{"addadmin", "-email", "head@kuet.ac.bd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			profile, err := repo.GetProfile(ctx, account.GetFilter{Email: "head@kuet.ac.bd"})
			if err != nil {
				t.Fatalf("GetProfile() failed: %v", err)
			}
			if !profile.IsAdmin() {
				t.Errorf("role = %q; want %q", profile.Role, account.RoleAdmin)
			}
			if !profile.IsActive {
				t.Error("admin account is not active")
			}
			if err = credential.Verify("adm1np4ss", profile.PasswordHash); err != nil {
				t.Errorf("admin password does not verify: %v", err)
			}
		})
	}

	t.Run("existing non-admin account", func(t *testing.T) {
		createProfile(t, repo, "teach@kuet.ac.bd", account.RoleTeacher)
		if err := cli.run([]string{"admin", "addadmin", "-email", "teach@kuet.ac.bd"}); err == nil {
			t.Error("cli.run() on a non-admin account succeeded; want error")
		}
	})

	t.Run("generated password", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }
		if err := cli.run([]string{"admin", "addadmin", "-email", "dean@kuet.ac.bd"}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
		profile, err := repo.GetProfile(ctx, account.GetFilter{Email: "dean@kuet.ac.bd"})
		if err != nil {
			t.Fatalf("GetProfile() failed: %v", err)
		}
		if len(profile.PasswordHash) == 0 {
			t.Error("no password hash stored for generated password")
		}
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repo := setup(t)
	ctx := context.Background()

	profile := createProfile(t, repo, "karim@kuet.ac.bd", account.RoleTeacher)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "karim@kuet.ac.bd"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@kuet.ac.bd"}, extra: extra{pwd: "lol"}, wantErr: account.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "karim@kuet.ac.bd"}, extra: extra{pwd: "n3wp4ss"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := repo.GetProfile(ctx, account.GetFilter{ID: profile.UserID})
				if err != nil {
					t.Fatalf("GetProfile() failed: %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, profile.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func createProfile(t *testing.T, repo account.Repository, email, role string) account.Profile {
	t.Helper()

	hash, err := credential.Hash("0ldp4ss")
	if err != nil {
		t.Fatalf("credential.Hash() failed: %v", err)
	}
	now := time.Now().UTC()
	profile, err := repo.CreateProfile(context.Background(), account.Profile{
		UserID:       uuid.New().String(),
		Role:         role,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("repo.CreateProfile() failed: %v", err)
	}
	return profile
}
