package apiclient

import (
	"context"
	"fmt"

	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
)

// View selects which endpoints a Source reads.
type View string

// Views.
const (
	// ViewAdmin reads every log sheet and every work.
	ViewAdmin View = "admin"

	// ViewArtist reads the company log sheets and the artist's own works.
	ViewArtist View = "artist"
)

// Source adapts a Client to the refresh loader.
type Source struct {
	client *Client
	view   View
	userID int64
}

// NewSource creates a Source for view. userID scopes the artist view's
// works when the API returns more than the caller's own catalogue.
func NewSource(client *Client, view View, userID int64) (*Source, error) {
	switch view {
	case ViewAdmin, ViewArtist:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidView, view)
	}

	return &Source{client: client, view: view, userID: userID}, nil
}

// LogSheets implements refresh.Source.
func (s *Source) LogSheets(ctx context.Context) ([]logsheet.UsageRecord, error) {
	if s.view == ViewAdmin {
		return s.client.AllLogSheets(ctx)
	}
	return s.client.CompanyLogSheets(ctx)
}

// Works implements refresh.Source.
func (s *Source) Works(ctx context.Context) ([]logsheet.Work, error) {
	if s.view == ViewAdmin {
		return s.client.AllMusic(ctx)
	}

	works, err := s.client.MyMusic(ctx)
	if err != nil {
		return nil, err
	}
	if s.userID == 0 {
		return works, nil
	}

	owned := make([]logsheet.Work, 0, len(works))
	for _, w := range works {
		// Works without an owner are the caller's own.
		if w.OwnerID() == 0 || w.OwnerID() == s.userID {
			owned = append(owned, w)
		}
	}
	return owned, nil
}
