package errors

import (
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code}
}

func TestIsSQLState(t *testing.T) {
	if !IsSQLState(pg("23505"), "23505") {
		t.Fatal("direct PgError not matched")
	}
	wrapped := Wrap(pg("23505"), ErrorCodeDB, "postgres")
	if !IsSQLState(wrapped, "23505") {
		t.Fatal("wrapped PgError not matched")
	}
	if !IsDuplicateKey(wrapped) {
		t.Fatal("IsDuplicateKey should see through wrapping")
	}
	if IsSQLState(stderrs.New("nope"), "23505") {
		t.Fatal("plain error must not match")
	}
}

func TestPgRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{pg("40001"), true},  // serialization failure
		{pg("40P01"), true},  // deadlock
		{pg("55P03"), true},  // lock not available
		{pg("57P03"), true},  // cannot connect now
		{pg("23505"), false}, // unique violation is not transient
		{fmt.Errorf("write: conn closed"), true},
		{fmt.Errorf("read: connection reset by peer"), true},
		{stderrs.New("syntax error"), false},
	}
	for _, c := range cases {
		if got := PgRetryable(c.err); got != c.want {
			t.Errorf("PgRetryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestFromPgMapping(t *testing.T) {
	if FromPg(nil, "op") != nil {
		t.Fatal("FromPg(nil) should be nil")
	}
	if got := CodeOf(FromPg(pg("40001"), "op")); got != ErrorCodeUnavailable {
		t.Errorf("serialization failure code = %v, want %v", got, ErrorCodeUnavailable)
	}
	if got := CodeOf(FromPg(pg("23502"), "op")); got != ErrorCodeInvalidArgument {
		t.Errorf("not-null violation code = %v, want %v", got, ErrorCodeInvalidArgument)
	}
	if got := CodeOf(FromPg(pg("XXXXX"), "op")); got != ErrorCodeDB {
		t.Errorf("unknown sqlstate code = %v, want %v", got, ErrorCodeDB)
	}
	if !Retryable(FromPg(fmt.Errorf("conn closed"), "op")) {
		t.Error("broken connection should map to a retryable error")
	}
}
