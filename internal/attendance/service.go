package attendance

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"boostify/internal/backend"
	"boostify/internal/listview"
	"boostify/internal/session"
)

// API is the part of the backend client the attendance views use.
type API interface {
	WhoAmI(ctx context.Context, token string) (backend.Identity, error)
	Attendances(ctx context.Context, token string, page int) (backend.AttendancePage, error)
	Recap(ctx context.Context, token string, page int) (backend.RecapPage, error)
	PersonalRecord(ctx context.Context, token string) ([]backend.AttendanceTime, error)
	UploadImage(ctx context.Context, token, filename string, data []byte) (string, error)
	DeleteImage(ctx context.Context, token string) error
}

// Caller is the signed-in browser a request runs for. Every backend error is
// passed through Observe, which applies the authorization-failure policy.
type Caller interface {
	Token() string
	Identity() session.Identity
	Observe(err error) error
}

// Service builds the attendance view models from backend responses.
type Service struct {
	api API
	loc *time.Location
}

// NewService creates a service rendering times in loc (UTC when nil).
func NewService(api API, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{api: api, loc: loc}
}

// LiveReport loads one page of the attendance log. date is the selected
// filter date; it is kept for display only and not sent to the backend.
func (s *Service) LiveReport(ctx context.Context, c Caller, page int, date string) (LiveReportPage, error) {
	v := listview.NewView[Record]()
	snap, err := v.Load(ctx, page, func(ctx context.Context, page int) ([]Record, int, error) {
		res, err := s.api.Attendances(ctx, c.Token(), page)
		if err != nil {
			return nil, 0, c.Observe(err)
		}
		records := make([]Record, 0, len(res.Assistances))
		for _, r := range res.Assistances {
			records = append(records, recordFrom(r, s.loc))
		}
		return records, res.TotalPages, nil
	})
	if err != nil {
		return LiveReportPage{}, err
	}
	return LiveReportPage{Records: snap.Items, Page: snap.Page, Date: date}, nil
}

// Recap loads one page of the recap. On page 1 the first three entries, in
// backend order, form the podium.
func (s *Service) Recap(ctx context.Context, c Caller, page int, date string) (RecapPage, error) {
	v := listview.NewView[Recap]()
	snap, err := v.Load(ctx, page, func(ctx context.Context, page int) ([]Recap, int, error) {
		res, err := s.api.Recap(ctx, c.Token(), page)
		if err != nil {
			return nil, 0, c.Observe(err)
		}
		entries := make([]Recap, 0, len(res.Payload))
		for _, r := range res.Payload {
			entries = append(entries, recapFrom(r))
		}
		return entries, res.Pagination.TotalPages, nil
	})
	if err != nil {
		return RecapPage{}, err
	}

	out := RecapPage{Entries: snap.Items, Page: snap.Page, Date: date}
	if snap.Page.CurrentPage == 1 {
		out.Podium, out.Entries = listview.SplitPodium(snap.Items)
	}
	return out, nil
}

// Profile loads identity and attendance history concurrently. A whoami
// failure that is not an authorization failure falls back to the identity
// held in the session.
func (s *Service) Profile(ctx context.Context, c Caller) (ProfilePage, error) {
	var (
		who     backend.Identity
		whoErr  error
		history []backend.AttendanceTime
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		who, whoErr = s.api.WhoAmI(gctx, c.Token())
		whoErr = c.Observe(whoErr)
		if errors.Is(whoErr, backend.ErrAuthExpired) {
			return whoErr
		}
		return nil
	})
	g.Go(func() error {
		var err error
		history, err = s.api.PersonalRecord(gctx, c.Token())
		return c.Observe(err)
	})
	if err := g.Wait(); err != nil {
		return ProfilePage{}, err
	}

	id := c.Identity()
	profile := Profile{Name: id.Name, AssistantCode: id.AssistantCode, AvatarURL: id.AvatarURL}
	if whoErr != nil {
		log.Printf("whoami failed, using session identity: %v", whoErr)
	} else {
		profile.Name = who.Name
		profile.AssistantCode = who.AssistantCode
		if who.ImageURL != "" {
			profile.AvatarURL = who.ImageURL
		}
	}
	if profile.AvatarURL == "" {
		profile.AvatarURL = DefaultAvatar
	}

	entries := make([]HistoryEntry, 0, len(history))
	for _, h := range history {
		entries = append(entries, historyFrom(h, s.loc))
	}
	return ProfilePage{Profile: profile, History: entries}, nil
}

// UploadAvatar validates and uploads a profile image, returning its URL.
func (s *Service) UploadAvatar(ctx context.Context, c Caller, filename string, data []byte) (string, error) {
	url, err := s.api.UploadImage(ctx, c.Token(), filename, data)
	if err != nil {
		return "", c.Observe(err)
	}
	return url, nil
}

// DeleteAvatar removes the profile image; the profile then shows DefaultAvatar.
func (s *Service) DeleteAvatar(ctx context.Context, c Caller) error {
	return c.Observe(s.api.DeleteImage(ctx, c.Token()))
}
