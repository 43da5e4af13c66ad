// Package submit turns a daily note into workblocks on the RSG-Admin API.
//
// The workflow is strictly sequential: authenticate, resolve the submitting
// RSE, refuse a day that already has workblocks, check every project exists,
// then create one workblock per project. The first failure aborts; workblocks
// already created are left in place.
package submit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/rsg-workblocks/internal/model"
	"github.com/Tiliavir/rsg-workblocks/internal/note"
	"github.com/Tiliavir/rsg-workblocks/internal/rsgapi"
)

// APIClient is the subset of the REST API the submitter needs.
type APIClient interface {
	IssueToken(ctx context.Context, username, password string) (string, error)
	Authenticate(token string)
	List(ctx context.Context, path string, filters url.Values) ([]model.Record, error)
	Create(ctx context.Context, path string, fields url.Values) (model.Record, error)
}

// CredentialProvider caches the API token and asks the user for credentials
// when there is none.
type CredentialProvider interface {
	Load() (token string, ok bool, err error)
	Store(token string) error
	Prompt(defaultUsername string) (username, password string, err error)
}

// Options tune a Submitter. The zero value submits EXPENDED workblocks and
// logs nothing.
type Options struct {
	WorkblockType string
	DryRun        bool
	Logger        zerolog.Logger
}

// Submitter submits notes for one RSE against one API.
type Submitter struct {
	api      APIClient
	creds    CredentialProvider
	identity string
	rsePK    int
	opts     Options
	log      zerolog.Logger
}

// New authenticates against the API and resolves identity (the RSE's LDAP DN
// or username) to its primary key.
func New(ctx context.Context, api APIClient, creds CredentialProvider, identity string, opts Options) (*Submitter, error) {
	if opts.WorkblockType == "" {
		opts.WorkblockType = model.DefaultWorkblockType
	}
	s := &Submitter{
		api:      api,
		creds:    creds,
		identity: identity,
		opts:     opts,
		log:      opts.Logger.With().Str("rse", identity).Logger(),
	}

	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	api.Authenticate(token)

	pk, err := s.ResolvePK(ctx, rsgapi.PathRSEs, url.Values{"ldap_dn": {identity}})
	if err != nil {
		return nil, fmt.Errorf("resolving rse %q: %w", identity, err)
	}
	s.rsePK = pk
	s.log.Debug().Int("rse_pk", pk).Msg("resolved rse")
	return s, nil
}

// RSEPK returns the submitting RSE's primary key.
func (s *Submitter) RSEPK() int { return s.rsePK }

// Token returns the cached token verbatim, or prompts for credentials,
// exchanges them for a token and caches it.
func (s *Submitter) Token(ctx context.Context) (string, error) {
	token, ok, err := s.creds.Load()
	if err != nil {
		return "", fmt.Errorf("loading cached token: %w", err)
	}
	if ok {
		return token, nil
	}

	username, password, err := s.creds.Prompt(s.identity)
	if err != nil {
		return "", fmt.Errorf("prompting for credentials: %w", err)
	}
	token, err = s.api.IssueToken(ctx, username, password)
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("token request rejected")
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if err := s.creds.Store(token); err != nil {
		return "", fmt.Errorf("caching token: %w", err)
	}
	s.log.Info().Str("username", username).Msg("obtained and cached API token")
	return token, nil
}

// ResolvePK returns the pk of the single object at path matching filters.
func (s *Submitter) ResolvePK(ctx context.Context, path string, filters url.Values) (int, error) {
	records, err := s.api.List(ctx, path, filters)
	if err != nil {
		return 0, err
	}
	if len(records) != 1 {
		s.log.Warn().
			Str("path", path).
			Str("filters", filters.Encode()).
			Interface("objects", records).
			Msg("expected exactly one object")
		return 0, &EntityResolutionError{Path: path, Filters: filters, Records: records}
	}
	return records[0].PK()
}

// IsAlreadySubmitted reports whether the RSE has any workblock on date.
// The check is advisory: nothing stops another client submitting afterwards.
func (s *Submitter) IsAlreadySubmitted(ctx context.Context, date string) (bool, error) {
	records, err := s.Workblocks(ctx, date, date)
	if err != nil {
		return false, fmt.Errorf("checking existing workblocks for %s: %w", date, err)
	}
	return len(records) > 0, nil
}

// Workblocks lists the RSE's workblocks between from and to inclusive.
func (s *Submitter) Workblocks(ctx context.Context, from, to string) ([]model.Record, error) {
	return s.api.List(ctx, rsgapi.PathWorkblocks, url.Values{
		"rse":        {strconv.Itoa(s.rsePK)},
		"start_date": {from},
		"end_date":   {to},
	})
}

// SubmitNoteFile parses the note at path and submits it.
func (s *Submitter) SubmitNoteFile(ctx context.Context, path string) ([]model.Record, error) {
	n, err := note.Load(path)
	if err != nil {
		return nil, err
	}
	return s.SubmitNote(ctx, n)
}

// SubmitNote creates one workblock per project of n and returns the created
// records in note order. In dry-run mode nothing is created and nil is returned.
func (s *Submitter) SubmitNote(ctx context.Context, n model.Note) ([]model.Record, error) {
	log := s.log.With().Str("date", n.Date).Logger()

	submitted, err := s.IsAlreadySubmitted(ctx, n.Date)
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, &DuplicateSubmissionError{Date: n.Date}
	}

	if len(n.Projects) == 0 {
		log.Warn().Msg("note lists no projects, nothing to submit")
		return nil, nil
	}

	// All projects must exist before anything is written.
	pks := make([]int, len(n.Projects))
	for i, p := range n.Projects {
		pk, err := s.ResolvePK(ctx, rsgapi.PathProjects, url.Values{"slug": {p.Slug}})
		if err != nil {
			var ere *EntityResolutionError
			if errors.As(err, &ere) {
				return nil, &ProjectNotFoundError{Slug: p.Slug, Err: err}
			}
			return nil, fmt.Errorf("resolving project %q: %w", p.Slug, err)
		}
		pks[i] = pk
	}

	var created []model.Record
	for i, p := range n.Projects {
		wb := model.Workblock{
			Project:    pks[i],
			RSE:        s.rsePK,
			StartDate:  n.Date,
			EndDate:    n.Date,
			EffortRate: p.EffortRate,
			Type:       s.opts.WorkblockType,
		}
		if s.opts.DryRun {
			log.Info().Str("project", p.Slug).Interface("workblock", wb).Msg("dry run: would create workblock")
			continue
		}

		rec, err := s.api.Create(ctx, rsgapi.PathWorkblocks, wb.Values())
		if err != nil {
			return created, &RemoteWriteError{Slug: p.Slug, Created: len(created), Err: err}
		}
		log.Info().Str("project", p.Slug).Interface("workblock", rec).Msg("created workblock")
		created = append(created, rec)
	}
	return created, nil
}
