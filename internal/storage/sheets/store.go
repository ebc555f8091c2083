package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

var spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ParseSpreadsheetID accepts a spreadsheet URL or a bare ID.
func ParseSpreadsheetID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if m := spreadsheetURL.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if s == "" || strings.ContainsAny(s, "/ ?#") {
		return "", fmt.Errorf("invalid spreadsheet id or url: %q", s)
	}
	return s, nil
}

// quoteSheet renders a worksheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// Store keeps appointments in one worksheet whose first row is the header.
// Rows are matched by column name, so column order is free and missing
// columns read as empty strings.
type Store struct {
	session       *Session
	spreadsheetID string
	worksheet     string

	mu      sync.Mutex
	sheetID *int64
}

func New(session *Session, spreadsheetID, worksheet string) *Store {
	return &Store{
		session:       session,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
	}
}

func (s *Store) GetConfigPath() string {
	return fmt.Sprintf("sheets:%s/%s", s.spreadsheetID, s.worksheet)
}

// Init creates the worksheet if needed and writes the header row when the
// sheet is empty.
func (s *Store) Init() error {
	ctx := context.Background()
	svc, err := s.session.Service(ctx)
	if err != nil {
		return err
	}

	id, err := s.lookupSheetID(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotInitialized) {
		return err
	}
	if errors.Is(err, storage.ErrNotInitialized) {
		resp, err := svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: s.worksheet},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return s.wrap("create worksheet", err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
			id = resp.Replies[0].AddSheet.Properties.SheetId
			s.setSheetID(id)
		}
		logger.Info("Created worksheet", "spreadsheet", s.spreadsheetID, "worksheet", s.worksheet, "sheet_id", id)
	}

	header, err := s.header(ctx)
	if err != nil {
		return err
	}
	if len(header) > 0 {
		return nil
	}

	_, err = svc.Spreadsheets.Values.Update(s.spreadsheetID, quoteSheet(s.worksheet)+"!A1", &sheets.ValueRange{
		Values: [][]interface{}{toCells(models.Columns)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return s.wrap("write header", err)
	}
	return nil
}

// Load checks that the worksheet exists.
func (s *Store) Load() error {
	_, err := s.lookupSheetID(context.Background())
	return err
}

func (s *Store) Close() error {
	return nil
}

// Refresh drops the API client and the cached sheet id.
func (s *Store) Refresh() {
	s.session.Invalidate()
	s.mu.Lock()
	s.sheetID = nil
	s.mu.Unlock()
}

func (s *Store) ReadAll(ctx context.Context) ([]models.Appointment, error) {
	values, err := s.values(ctx, quoteSheet(s.worksheet))
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, nil
	}
	header := toStrings(values[0])
	out := make([]models.Appointment, 0, len(values)-1)
	for _, row := range values[1:] {
		out = append(out, models.FromRow(header, toStrings(row)))
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, a models.Appointment) error {
	svc, err := s.session.Service(ctx)
	if err != nil {
		return err
	}
	header, err := s.header(ctx)
	if err != nil {
		return err
	}
	header, err = s.ensureColumns(ctx, svc, header)
	if err != nil {
		return err
	}

	_, err = svc.Spreadsheets.Values.Append(s.spreadsheetID, quoteSheet(s.worksheet)+"!A1", &sheets.ValueRange{
		Values: [][]interface{}{toCells(rowFor(header, a))},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return s.wrap("append row", err)
	}
	return nil
}

// ensureColumns extends the header row with any of models.Columns it lacks,
// so an appended row never loses a field.
func (s *Store) ensureColumns(ctx context.Context, svc *sheets.Service, header []string) ([]string, error) {
	have := make(map[string]bool, len(header))
	for _, name := range header {
		have[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var missing []string
	for _, col := range models.Columns {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return header, nil
	}

	extended := append(append([]string{}, header...), missing...)
	_, err := svc.Spreadsheets.Values.Update(s.spreadsheetID, quoteSheet(s.worksheet)+"!A1", &sheets.ValueRange{
		Values: [][]interface{}{toCells(extended)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, s.wrap("extend header", err)
	}
	logger.Info("Added missing worksheet columns", "worksheet", s.worksheet, "columns", missing)
	return extended, nil
}

func (s *Store) DeleteMatching(ctx context.Context, a models.Appointment) error {
	values, err := s.values(ctx, quoteSheet(s.worksheet))
	if err != nil {
		return err
	}
	if len(values) < 2 {
		return storage.ErrNotFound
	}
	header := toStrings(values[0])
	row := -1
	for i, v := range values[1:] {
		if models.FromRow(header, toStrings(v)).Matches(a) {
			row = i + 1 // header occupies row 0
			break
		}
	}
	if row < 0 {
		return storage.ErrNotFound
	}

	sheetID, err := s.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	svc, err := s.session.Service(ctx)
	if err != nil {
		return err
	}
	_, err = svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(row),
					EndIndex:        int64(row + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return s.wrap("delete row", err)
	}
	return nil
}

func (s *Store) values(ctx context.Context, rng string) ([][]interface{}, error) {
	svc, err := s.session.Service(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, s.wrap("read values", err)
	}
	return resp.Values, nil
}

func (s *Store) header(ctx context.Context) ([]string, error) {
	values, err := s.values(ctx, quoteSheet(s.worksheet)+"!1:1")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return toStrings(values[0]), nil
}

func (s *Store) setSheetID(id int64) {
	s.mu.Lock()
	s.sheetID = &id
	s.mu.Unlock()
}

// lookupSheetID resolves the numeric id of the worksheet, which row deletes
// need. Returns storage.ErrNotInitialized if the worksheet does not exist.
func (s *Store) lookupSheetID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.sheetID != nil {
		id := *s.sheetID
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	svc, err := s.session.Service(ctx)
	if err != nil {
		return 0, err
	}
	ss, err := svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, s.wrap("open spreadsheet", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.worksheet {
			s.setSheetID(sh.Properties.SheetId)
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found: %w", s.worksheet, storage.ErrNotInitialized)
}

// wrap annotates API errors and drops the client after auth failures so the
// next call re-authenticates.
func (s *Store) wrap(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			logger.Warn("Sheets authorization failed, dropping session", "op", op, "code", apiErr.Code)
			s.session.Invalidate()
		}
	}
	return fmt.Errorf("sheets: failed to %s: %w", op, err)
}

func rowFor(header []string, a models.Appointment) []string {
	row := make([]string, len(header))
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case models.ColumnDate:
			row[i] = a.Date
		case models.ColumnSlot:
			row[i] = a.Slot
		case models.ColumnBarber:
			row[i] = a.Barber
		case models.ColumnCustomer:
			row[i] = a.Customer
		}
	}
	return row
}

func toCells(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
