package http

import (
	"time"

	"riepilogo/internal/core"
	"riepilogo/internal/ranking"
	"riepilogo/internal/summary"
)

// Amounts are rendered as fixed two-decimal strings so clients never see
// float artifacts.

type transactionDTO struct {
	ID              string  `json:"id"`
	OwnerID         string  `json:"owner_id"`
	Amount          *string `json:"amount"`
	Description     string  `json:"description"`
	OccurredAt      string  `json:"occurred_at"`
	CategoryID      *string `json:"category_id,omitempty"`
	PaymentMethodID *string `json:"payment_method_id,omitempty"`
	EstablishmentID *string `json:"establishment_id,omitempty"`
}

func newTransactionDTO(rec core.TransactionRecord) transactionDTO {
	dto := transactionDTO{
		ID:              rec.ID,
		OwnerID:         string(rec.OwnerID),
		Description:     rec.Description,
		OccurredAt:      rec.OccurredAt.Format(time.RFC3339),
		CategoryID:      rec.CategoryID,
		PaymentMethodID: rec.PaymentMethodID,
		EstablishmentID: rec.EstablishmentID,
	}
	if rec.Amount.Valid {
		s := rec.Amount.String()
		dto.Amount = &s
	}
	return dto
}

type lookupDTO struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

func newLookupDTO(l core.Lookup) lookupDTO {
	return lookupDTO{ID: l.ID, Kind: string(l.Kind), Name: l.Name, Icon: l.Icon}
}

type lookupsDTO struct {
	Categories     []lookupDTO `json:"categories"`
	PaymentMethods []lookupDTO `json:"payment_methods"`
	Establishments []lookupDTO `json:"establishments"`
}

type groupDTO struct {
	Ref        core.Ref `json:"ref"`
	Total      string   `json:"total"`
	Count      int      `json:"count"`
	Rank       int      `json:"rank,omitempty"`
	Percentage string   `json:"percentage,omitempty"`
}

func groupDTOs(groups []core.GroupTotal) []groupDTO {
	out := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupDTO{Ref: g.Ref, Total: g.Total.String(), Count: g.Count})
	}
	return out
}

func rankedDTOs(groups []core.RankedGroup) []groupDTO {
	out := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupDTO{
			Ref:        g.Ref,
			Total:      g.Total.String(),
			Count:      g.Count,
			Rank:       g.Rank,
			Percentage: g.Percentage.StringFixed(2),
		})
	}
	return out
}

type bucketDTO struct {
	Label             string     `json:"label"`
	Start             string     `json:"start"`
	End               string     `json:"end"`
	Granularity       string     `json:"granularity"`
	Selectable        bool       `json:"selectable"`
	Total             string     `json:"total"`
	Count             int        `json:"count"`
	Average           string     `json:"average"`
	ByCategory        []groupDTO `json:"by_category"`
	ByPaymentMethod   []groupDTO `json:"by_payment_method"`
	ByEstablishment   []groupDTO `json:"by_establishment"`
	TopEstablishments []groupDTO `json:"top_establishments"`
}

type deltaDTO struct {
	Kind       ranking.DeltaKind `json:"kind"`
	Percentage *string           `json:"percentage,omitempty"`
}

type snapshotDTO struct {
	From              string      `json:"from"`
	To                string      `json:"to"`
	Total             string      `json:"total"`
	Count             int         `json:"count"`
	Average           string      `json:"average"`
	Buckets           []bucketDTO `json:"buckets"`
	TopCategories     []groupDTO  `json:"top_categories"`
	TopPaymentMethods []groupDTO  `json:"top_payment_methods"`
	TopEstablishments []groupDTO  `json:"top_establishments"`
	CategoryShares    []groupDTO  `json:"category_shares"`
	PreviousTotal     string      `json:"previous_total"`
	Delta             deltaDTO    `json:"delta"`
	ComputedAt        string      `json:"computed_at"`
}

func newSnapshotDTO(s *summary.Snapshot) *snapshotDTO {
	if s == nil {
		return nil
	}
	dto := &snapshotDTO{
		From:              s.Range.From.Format(time.RFC3339),
		To:                s.Range.To.Format(time.RFC3339),
		Total:             s.Total.String(),
		Count:             s.Count,
		Average:           s.Average().String(),
		Buckets:           make([]bucketDTO, 0, len(s.Buckets)),
		TopCategories:     rankedDTOs(s.TopCategories),
		TopPaymentMethods: rankedDTOs(s.TopPaymentMethods),
		TopEstablishments: rankedDTOs(s.TopEstablishments),
		CategoryShares:    rankedDTOs(s.CategoryShares),
		PreviousTotal:     s.PreviousTotal.String(),
		Delta:             deltaDTO{Kind: s.Delta.Kind},
		ComputedAt:        s.ComputedAt.Format(time.RFC3339),
	}
	if s.Delta.HasPercentage() {
		p := s.Delta.Percentage.StringFixed(2)
		dto.Delta.Percentage = &p
	}
	for _, b := range s.Buckets {
		dto.Buckets = append(dto.Buckets, bucketDTO{
			Label:             b.Bucket.Label,
			Start:             b.Bucket.Start.Format(time.RFC3339),
			End:               b.Bucket.End.Format(time.RFC3339),
			Granularity:       string(b.Bucket.Granularity),
			Selectable:        b.Bucket.Selectable,
			Total:             b.Total.String(),
			Count:             b.Count,
			Average:           b.Average().String(),
			ByCategory:        groupDTOs(b.ByCategory),
			ByPaymentMethod:   groupDTOs(b.ByPaymentMethod),
			ByEstablishment:   groupDTOs(b.ByEstablishment),
			TopEstablishments: rankedDTOs(b.TopEstablishments),
		})
	}
	return dto
}

type paramsDTO struct {
	Kind     summary.Kind `json:"kind"`
	Owner    string       `json:"owner"`
	Days     int          `json:"days,omitempty"`
	Year     int          `json:"year,omitempty"`
	FromYear int          `json:"from_year,omitempty"`
	ToYear   int          `json:"to_year,omitempty"`
	TopN     int          `json:"top_n"`
}

type viewDTO struct {
	Params     paramsDTO    `json:"params"`
	Phase      string       `json:"phase"`
	Refreshing bool         `json:"refreshing"`
	Generation uint64       `json:"generation"`
	UpdatedAt  string       `json:"updated_at,omitempty"`
	Error      string       `json:"error,omitempty"`
	Data       *snapshotDTO `json:"data"`
}

func newViewDTO(p summary.Params, st summary.State) viewDTO {
	dto := viewDTO{
		Params: paramsDTO{
			Kind:     p.Kind,
			Owner:    string(p.Owner),
			Days:     p.Days,
			Year:     p.Year,
			FromYear: p.FromYear,
			ToYear:   p.ToYear,
			TopN:     p.TopN,
		},
		Phase:      st.Phase.String(),
		Refreshing: st.Refreshing,
		Generation: st.Generation,
		Data:       newSnapshotDTO(st.Data),
	}
	if !st.UpdatedAt.IsZero() {
		dto.UpdatedAt = st.UpdatedAt.Format(time.RFC3339)
	}
	if st.Err != nil {
		dto.Error = st.Err.Error()
	}
	return dto
}
