package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
)

func TestTranslateErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: sql.ErrNoRows, want: account.ErrNotFound},
		{name: "wrapped no rows", err: errors.Wrap(sql.ErrNoRows, "getting profile"), want: account.ErrNotFound},
		{
			name: "email constraint",
			err:  &pq.Error{Code: uniqueViolation, Constraint: "profiles_email_key"},
			want: account.ErrEmailExists,
		},
		{
			name: "wrapped email constraint",
			err:  errors.Wrap(&pq.Error{Code: uniqueViolation, Constraint: "profiles_email_key"}, "inserting profile"),
			want: account.ErrEmailExists,
		},
		{
			name: "roll constraint",
			err:  &pq.Error{Code: uniqueViolation, Constraint: "students_roll_no_key"},
			want: account.ErrRollNoExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateErr(tt.err); got != tt.want {
				t.Errorf("translateErr() = %v; want %v", got, tt.want)
			}
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		err := errors.New("connection reset")
		if got := translateErr(err); got != err {
			t.Errorf("translateErr() = %v; want the original error", got)
		}
		pqErr := &pq.Error{Code: "42P01"}
		if got := translateErr(pqErr); got != error(pqErr) {
			t.Errorf("translateErr() = %v; want the original error", got)
		}
	})
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "default", want: "p.created_at DESC"},
		{name: "ascending", ordering: []core.DBOrdering{{Field: "created_at", Ascending: true}}, want: "p.created_at ASC"},
		{
			name:     "unknown column ignored",
			ordering: []core.DBOrdering{{Field: "password_hash; DROP TABLE profiles"}},
			want:     "p.created_at DESC",
		},
		{
			name:     "multiple",
			ordering: []core.DBOrdering{{Field: "email", Ascending: true}, {Field: "created_at"}},
			want:     "p.email ASC, p.created_at DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderBy(tt.ordering); got != tt.want {
				t.Errorf("orderBy() = %q; want %q", got, tt.want)
			}
		})
	}
}
