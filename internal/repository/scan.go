package repository

import (
	"database/sql"
	"fmt"
	"net/netip"
	"time"
)

// Column codecs for the nullable columns of the inventory schema.
// Addresses are stored as their canonical text form.

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableAddr(a netip.Addr) any {
	if !a.IsValid() {
		return nil
	}
	return a.String()
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func parseNullAddr(v sql.NullString) (netip.Addr, error) {
	if !v.Valid || v.String == "" {
		return netip.Addr{}, nil
	}
	return parseStoredAddr(v.String)
}

func parseStoredAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("stored address %q is invalid: %w", s, err)
	}
	return addr, nil
}

const storedTimeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{storedTimeLayout, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("stored time %q is invalid", s)
}
