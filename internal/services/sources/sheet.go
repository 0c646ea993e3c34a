package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"golang.org/x/oauth2"
)

// SheetSource reads FAQ rows from the Google Sheets values API or from a
// published CSV export of the sheet.
type SheetSource struct {
	config common.FaqSourceConfig
	client *resty.Client
	logger arbor.ILogger
}

type valuesResponse struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// NewSheetSource creates the FAQ source. An access token is sent as a bearer
// token and takes priority over the API key.
func NewSheetSource(config common.FaqSourceConfig, logger arbor.ILogger) *SheetSource {
	var client *resty.Client
	if config.AccessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.AccessToken})
		client = resty.NewWithClient(oauth2.NewClient(context.Background(), ts))
	} else {
		client = resty.New()
	}

	client.
		SetTimeout(common.ParseDurationOr(config.Timeout, 30*time.Second)).
		SetHeader("Accept", "application/json, text/csv")

	return &SheetSource{
		config: config,
		client: client,
		logger: logger,
	}
}

// Name identifies the source in logs
func (s *SheetSource) Name() string {
	if s.config.SheetID == "" && s.config.CSVURL != "" {
		return "faq-csv"
	}
	return "google-sheets"
}

// Configured is true when a sheet id or a CSV URL is set
func (s *SheetSource) Configured() bool {
	return s.config.SheetID != "" || s.config.CSVURL != ""
}

// Fetch reads every row and maps it to a FaqItem
func (s *SheetSource) Fetch(ctx context.Context) ([]models.FaqItem, error) {
	var rows [][]string
	var err error

	switch {
	case s.config.SheetID != "":
		rows, err = s.fetchValues(ctx)
	case s.config.CSVURL != "":
		rows, err = s.fetchCSV(ctx)
	default:
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, err
	}

	items := rowsToFaqItems(rows)
	s.logger.Debug().
		Str("source", s.Name()).
		Int("rows", len(rows)).
		Int("items", len(items)).
		Msg("Fetched FAQ rows")

	return items, nil
}

func (s *SheetSource) fetchValues(ctx context.Context) ([][]string, error) {
	baseURL := strings.TrimSuffix(s.config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://sheets.googleapis.com"
	}
	sheetRange := s.config.Range
	if sheetRange == "" {
		sheetRange = "A:C"
	}

	var result valuesResponse
	req := s.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"sheetID": s.config.SheetID,
			"range":   sheetRange,
		}).
		SetQueryParam("majorDimension", "ROWS").
		SetResult(&result)
	if s.config.AccessToken == "" && s.config.APIKey != "" {
		req.SetQueryParam("key", s.config.APIKey)
	}

	resp, err := req.Get(baseURL + "/v4/spreadsheets/{sheetID}/values/{range}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet values: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sheets API returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	return result.Values, nil
}

func (s *SheetSource) fetchCSV(ctx context.Context) ([][]string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.config.CSVURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch FAQ csv: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("FAQ csv returned %d", resp.StatusCode())
	}

	reader := csv.NewReader(bytes.NewReader(resp.Body()))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse FAQ csv: %w", err)
	}
	return rows, nil
}

// columnLayout maps FAQ fields to column indexes; -1 means absent
type columnLayout struct {
	id, category, question, answer int
}

// detectLayout reads a header row when one is present. Without a header a
// three column sheet is category, question, answer and a two column sheet is
// question, answer.
func detectLayout(first []string) (columnLayout, bool) {
	layout := columnLayout{id: -1, category: -1, question: -1, answer: -1}
	for i, cell := range first {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "id":
			layout.id = i
		case "category", "topic":
			layout.category = i
		case "question", "q":
			layout.question = i
		case "answer", "a":
			layout.answer = i
		}
	}
	if layout.question >= 0 && layout.answer >= 0 {
		return layout, true
	}

	if len(first) >= 3 {
		return columnLayout{id: -1, category: 0, question: 1, answer: 2}, false
	}
	return columnLayout{id: -1, category: -1, question: 0, answer: 1}, false
}

func rowsToFaqItems(rows [][]string) []models.FaqItem {
	if len(rows) == 0 {
		return nil
	}

	layout, hasHeader := detectLayout(rows[0])
	if hasHeader {
		rows = rows[1:]
	}

	items := make([]models.FaqItem, 0, len(rows))
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		item := models.FaqItem{
			ID:       cell(row, layout.id),
			Category: cell(row, layout.category),
			Question: cell(row, layout.question),
			Answer:   cell(row, layout.answer),
		}
		if item.ID == "" && item.Question != "" {
			item.ID = common.FaqItemID(item.Category, item.Question)
		}
		items = append(items, item)
	}
	return items
}

func cell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var _ interfaces.KnowledgeSource[models.FaqItem] = (*SheetSource)(nil)
