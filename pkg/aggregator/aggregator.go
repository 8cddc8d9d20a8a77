package aggregator

import (
	"strconv"
	"strings"
	"time"

	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
)

// Aggregate groups the selections in records by work, company, date and
// artist.
//
// References are skipped when they carry no work id, or when a scope is set
// and the reference is not owned by the scoped user (a reference without an
// owner never matches a scope). Missing company names, titles and dates
// degrade to placeholders; Aggregate never fails.
func Aggregate(records []logsheet.UsageRecord, opts Options) Result {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	res := Result{
		ByWork:    make(map[int64]WorkAggregate),
		ByCompany: make(map[string]int),
		ByDate:    make(map[string]int),
		ByArtist:  make(map[string]int),
	}

	// Work entries are mutated through pointers while counting and copied
	// into res.ByWork once at the end.
	works := make(map[int64]*WorkAggregate)
	// Works whose title came from a reference rather than the placeholder.
	titled := make(map[int64]bool)

	for _, record := range records {
		company := record.CompanyName()
		if company == "" {
			company = UnknownCompany
		}
		date := dateKey(record, loc)

		for _, ref := range record.SelectedMusic {
			id := int64(ref.ID)
			if id == 0 {
				continue
			}
			if opts.ScopeUserID != 0 && ref.OwnerID() != opts.ScopeUserID {
				continue
			}

			w, ok := works[id]
			if !ok {
				w = &WorkAggregate{
					ID:        id,
					Title:     placeholderTitle(id),
					OwnerID:   ref.OwnerID(),
					ByCompany: make(map[string]int),
					ByDate:    make(map[string]int),
				}
				works[id] = w
			}
			if title := strings.TrimSpace(ref.Title); title != "" && !titled[id] {
				w.Title = title
				titled[id] = true
			}
			if w.OwnerID == 0 {
				w.OwnerID = ref.OwnerID()
			}

			w.TotalSelections++
			w.ByCompany[company]++
			w.ByDate[date]++

			res.TotalSelections++
			res.ByCompany[company]++
			res.ByDate[date]++
			res.ByArtist[artistName(ref)]++
		}
	}

	for id, w := range works {
		res.ByWork[id] = *w
	}

	return res
}

func dateKey(record logsheet.UsageRecord, loc *time.Location) string {
	t := record.CreatedAt(loc)
	if t.IsZero() {
		return UnknownDate
	}
	return t.In(loc).Format(DateLayout)
}

func placeholderTitle(id int64) string {
	return "Track " + strconv.FormatInt(id, 10)
}

// artistName prefers the owner's email, then the artist field.
func artistName(ref logsheet.WorkReference) string {
	if ref.User != nil {
		if email := strings.TrimSpace(ref.User.Email); email != "" {
			return email
		}
	}
	if artist := strings.TrimSpace(ref.Artist); artist != "" {
		return artist
	}
	return UnknownArtist
}
