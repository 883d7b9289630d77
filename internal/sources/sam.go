// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/sbir-search/internal/httputil"
	"github.com/pdiddy/sbir-search/pkg/types"
)

// ReasonCredentialMissing prefixes the FetchStatus reason when a source is
// skipped for lack of a credential, so the failure is distinguishable from
// a network fault.
const ReasonCredentialMissing = "credential missing"

// samMaxWindowDays caps the posted-date range; the SAM.gov API rejects
// ranges of a year or more.
const samMaxWindowDays = 364

// SAMSource queries the SAM.gov opportunities search API. It requires an
// API key and fails fast, without a network call, when the key is absent.
type SAMSource struct {
	Client *httputil.Client
	Config types.SAMConfig

	// now is replaceable for tests of the posted-date window.
	now func() time.Time
}

// NewSAM builds the SAM.gov source.
func NewSAM(client *httputil.Client, cfg types.SAMConfig) *SAMSource {
	return &SAMSource{Client: client, Config: cfg, now: time.Now}
}

func (s *SAMSource) Name() string { return "sam" }

func (s *SAMSource) FallbackOnly() bool { return s.Config.FallbackOnly }

func (s *SAMSource) Fetch(ctx context.Context) ([]types.Opportunity, types.FetchStatus) {
	if s.Config.APIKey == "" {
		return nil, types.StatusFailed(ReasonCredentialMissing + ": SAM_API_KEY")
	}

	limit := s.Config.Limit
	if limit <= 0 {
		limit = 100
	}
	maxPages := s.Config.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}

	var opps []types.Opportunity
	offset := 0
	for page := 0; page < maxPages; page++ {
		records, err := s.fetchPage(ctx, limit, offset)
		if err != nil {
			if len(opps) > 0 {
				return opps, types.StatusDegraded(len(opps), failReason(err))
			}
			return nil, types.StatusFailed(failReason(err))
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			if o, ok := samOpportunity(rec); ok {
				opps = append(opps, o)
			}
		}

		if len(records) < limit {
			break
		}
		offset += limit
	}

	return opps, types.StatusOK(len(opps))
}

func (s *SAMSource) fetchPage(ctx context.Context, limit, offset int) ([]samRecord, error) {
	now := s.now().UTC()
	days := s.Config.PostedDays
	if days <= 0 || days > samMaxWindowDays {
		days = samMaxWindowDays
	}

	params := url.Values{
		"api_key":    {s.Config.APIKey},
		"postedFrom": {now.AddDate(0, 0, -days).Format("01/02/2006")},
		"postedTo":   {now.Format("01/02/2006")},
		"limit":      {strconv.Itoa(limit)},
		"offset":     {strconv.Itoa(offset)},
	}
	if s.Config.TitleQuery != "" {
		params.Set("title", s.Config.TitleQuery)
	}
	if s.Config.PType != "" {
		params.Set("ptype", s.Config.PType)
	}

	resp, err := s.Client.Get(ctx, s.Config.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SAM API returned HTTP %d", resp.StatusCode)
	}

	var payload samResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing SAM response: %w", err)
	}
	return payload.OpportunitiesData, nil
}

// samOpportunity maps one API record to the canonical shape. Records with
// no title are dropped.
func samOpportunity(rec samRecord) (types.Opportunity, bool) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		return types.Opportunity{}, false
	}

	identifier := rec.NoticeID
	if identifier == "" {
		identifier = rec.SolicitationNumber
	}
	if identifier == "" {
		identifier = title + ":" + rec.PostedDate
	}

	agency := rec.FullParentPathName
	if agency == "" {
		agency = rec.Department
	}
	branch := rec.Office
	if branch == "" {
		branch = rec.SubTier
	}
	oppURL := rec.UILink
	if oppURL == "" {
		oppURL = rec.AdditionalInfoLink
	}

	var descParts []string
	for _, kv := range [][2]string{
		{"type", rec.Type},
		{"setAside", rec.SetAside},
		{"naicsCode", rec.NaicsCode},
		{"classificationCode", rec.ClassificationCode},
	} {
		if kv[1] != "" {
			descParts = append(descParts, kv[0]+":"+kv[1])
		}
	}

	return types.Opportunity{
		ID:                 "sam::" + identifier,
		Source:             "sam",
		SolicitationTitle:  title,
		SolicitationNumber: rec.SolicitationNumber,
		Agency:             agency,
		Branch:             branch,
		OpenDate:           rec.PostedDate,
		CloseDate:          rec.ResponseDeadLine,
		TopicDescription:   strings.Join(descParts, " "),
		Open:               !strings.EqualFold(rec.Active, "no"),
		URL:                oppURL,
		Raw:                rec.raw(),
	}, true
}

// samResponse is the API envelope.
type samResponse struct {
	TotalRecords      int         `json:"totalRecords"`
	OpportunitiesData []samRecord `json:"opportunitiesData"`
}

type samRecord struct {
	NoticeID           string `json:"noticeId"`
	Title              string `json:"title"`
	SolicitationNumber string `json:"solicitationNumber"`
	FullParentPathName string `json:"fullParentPathName"`
	Department         string `json:"department"`
	SubTier            string `json:"subTier"`
	Office             string `json:"office"`
	PostedDate         string `json:"postedDate"`
	Type               string `json:"type"`
	SetAside           string `json:"typeOfSetAside"`
	NaicsCode          string `json:"naicsCode"`
	ClassificationCode string `json:"classificationCode"`
	Active             string `json:"active"`
	ResponseDeadLine   string `json:"responseDeadLine"`
	UILink             string `json:"uiLink"`
	AdditionalInfoLink string `json:"additionalInfoLink"`
}

func (r samRecord) raw() map[string]any {
	return map[string]any{
		"noticeId":           r.NoticeID,
		"solicitationNumber": r.SolicitationNumber,
		"type":               r.Type,
		"active":             r.Active,
	}
}
