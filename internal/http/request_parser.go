package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/services"
	"riepilogo/internal/summary"
)

const (
	// OwnerHeader identifies the caller's data set.
	OwnerHeader = "X-Owner-ID"

	maxBodyBytes = 64 << 10
	dateLayout   = "2006-01-02"
)

var errMissingOwner = errors.New("missing owner: set the X-Owner-ID header or the owner query parameter")

// parseOwner reads the owner from the header, then the query string, then
// falls back to the configured default.
func parseOwner(r *http.Request, fallback string) (core.OwnerID, error) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		owner = strings.TrimSpace(r.URL.Query().Get("owner"))
	}
	if owner == "" {
		owner = fallback
	}
	if owner == "" {
		return "", errMissingOwner
	}
	return core.OwnerID(owner), nil
}

// decodeJSON reads a single JSON object from r into v, rejecting unknown
// fields and bodies over maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// amountField accepts both "12.34" and 12.34, keeping the textual form so
// no float rounding happens before cents conversion.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = amountField(n.String())
	return nil
}

type transactionRequest struct {
	Amount          amountField `json:"amount"`
	Description     string      `json:"description"`
	OccurredAt      string      `json:"occurred_at"`
	CategoryID      *string     `json:"category_id"`
	PaymentMethodID *string     `json:"payment_method_id"`
	EstablishmentID *string     `json:"establishment_id"`
}

func (req transactionRequest) toInput(loc *time.Location) (services.TransactionInput, error) {
	occurredAt, err := parseOccurredAt(req.OccurredAt, loc)
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		Amount:          string(req.Amount),
		Description:     sanitizeInput(req.Description),
		OccurredAt:      occurredAt,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		EstablishmentID: req.EstablishmentID,
	}, nil
}

// parseOccurredAt accepts RFC 3339 timestamps or plain dates, which are
// taken as local midnight in loc.
func parseOccurredAt(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("occurred_at is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid occurred_at %q: use YYYY-MM-DD or RFC 3339", s)
}

type lookupRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// parseSummaryParams builds summary parameters from the path kind and the
// query string. Unset values are left zero for the loader to default.
func parseSummaryParams(kind string, query url.Values, owner core.OwnerID) (summary.Params, error) {
	k, err := summary.ParseKind(kind)
	if err != nil {
		return summary.Params{}, err
	}
	p := summary.Params{Kind: k, Owner: owner}

	ints := []struct {
		name string
		dst  *int
	}{
		{"days", &p.Days},
		{"year", &p.Year},
		{"from", &p.FromYear},
		{"to", &p.ToYear},
		{"top", &p.TopN},
	}
	for _, f := range ints {
		v := strings.TrimSpace(query.Get(f.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return summary.Params{}, fmt.Errorf("%w: %s must be a number", summary.ErrInvalidParams, f.name)
		}
		*f.dst = n
	}
	return p, nil
}

// parseDateRange reads inclusive from/to dates. Without them the current
// local month is used.
func parseDateRange(query url.Values, loc *time.Location, now time.Time) (calendar.DateRange, error) {
	today := now.In(loc)
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0)

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return calendar.DateRange{}, fmt.Errorf("invalid from date %q", v)
		}
		from = t
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return calendar.DateRange{}, fmt.Errorf("invalid to date %q", v)
		}
		to = t.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return calendar.DateRange{}, errors.New("to must not be before from")
	}
	return calendar.DateRange{From: from, To: to}, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
