package app

import (
	"fmt"
	"regexp"
	"strings"

	"drawtrack/pkg/domain"
	"drawtrack/pkg/timeslot"
)

const (
	maxValueLen = 4
	maxNoteLen  = 500

	sourceManual = "manual"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ResultInput is the payload for declaring a result.
type ResultInput struct {
	GameCode string `json:"gameCode"`
	DateStr  string `json:"dateStr"`
	Time     string `json:"time"`
	Value    string `json:"value"`
	Source   string `json:"source"`
	Note     string `json:"note"`
}

// SlotRow is one time slot of a day grid: the slot plus a value per
// game code. Games without a declared value carry the sentinel.
type SlotRow struct {
	SlotMin int               `json:"slotMin"`
	Time    string            `json:"time"`
	Values  map[string]string `json:"values"`
}

// TimewiseDay is the full grid for one date: every game as a column and
// every slot that has at least one declaration as a row.
type TimewiseDay struct {
	DateStr string           `json:"dateStr"`
	Games   []domain.Game    `json:"games"`
	Rows    []SlotRow        `json:"rows"`
	Results []ResultListItem `json:"results"`
}

// ResultListItem is one raw declaration row, exposed so callers can
// delete mistaken entries by id.
type ResultListItem struct {
	domain.Result
	GameCode string `json:"gameCode"`
	Time     string `json:"time"`
}

// Snapshot is the state of the board at a cutoff time: per game, the
// most recent declaration at or before the cutoff.
type Snapshot struct {
	DateStr string            `json:"dateStr"`
	Time    string            `json:"time"`
	Values  map[string]string `json:"values"`
}

// MonthlyDay is one date's final values, keyed by game code.
type MonthlyDay struct {
	DateStr string            `json:"dateStr"`
	Values  map[string]string `json:"values"`
}

// MonthlyTable lists, per date in the month, the final value per game.
// Days are sorted ascending by date.
type MonthlyTable struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Games []domain.Game `json:"games"`
	Days  []MonthlyDay  `json:"days"`
}

func validateDateStr(dateStr string) error {
	if !dateRe.MatchString(dateStr) {
		return fmt.Errorf("%w: dateStr must be YYYY-MM-DD, got %q", ErrInvalidInput, dateStr)
	}
	return nil
}

// codeSet normalizes a game-code filter. Nil means no filtering.
func codeSet(codes []string) map[string]bool {
	var set map[string]bool
	for _, c := range codes {
		c = normCode(c)
		if c == "" {
			continue
		}
		if set == nil {
			set = make(map[string]bool)
		}
		set[c] = true
	}
	return set
}

func inSet(set map[string]bool, code string) bool {
	return set == nil || set[code]
}

// AppendResult validates and appends one declaration. A blank value is
// stored as the sentinel so a slot can be opened before its number is
// known and corrected later by appending again.
func (a *App) AppendResult(in ResultInput) (domain.Result, error) {
	code := normCode(in.GameCode)
	if code == "" {
		return domain.Result{}, fmt.Errorf("%w: gameCode is required", ErrInvalidInput)
	}
	if err := validateDateStr(in.DateStr); err != nil {
		return domain.Result{}, err
	}
	slotMin, err := timeslot.ToMinutes(in.Time)
	if err != nil {
		return domain.Result{}, fmt.Errorf("%w: time %q is not a valid time", ErrInvalidInput, in.Time)
	}
	value := strings.ToUpper(strings.TrimSpace(in.Value))
	if value == "" {
		value = domain.SentinelValue
	}
	if len(value) > maxValueLen {
		return domain.Result{}, fmt.Errorf("%w: value exceeds %d characters", ErrInvalidInput, maxValueLen)
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = sourceManual
	}
	note := strings.TrimSpace(in.Note)
	if len(note) > maxNoteLen {
		return domain.Result{}, fmt.Errorf("%w: note exceeds %d characters", ErrInvalidInput, maxNoteLen)
	}
	g, ok, err := a.store.GetGameByCode(code)
	if err != nil {
		return domain.Result{}, err
	}
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: game %q", ErrNotFound, code)
	}
	return a.store.AppendResult(domain.Result{
		GameID:  g.ID,
		DateStr: in.DateStr,
		SlotMin: slotMin,
		Value:   value,
		Source:  source,
		Note:    note,
	})
}

// DeleteResult removes one declaration row by id. History correction is
// normally done by appending, so this exists only for operator cleanup.
func (a *App) DeleteResult(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: result id must be positive", ErrInvalidInput)
	}
	ok, err := a.store.DeleteResultByID(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: result %d", ErrNotFound, id)
	}
	return nil
}

// TimewiseForDate builds the day grid for dateStr. Rows come from the
// distinct slots that have declarations; within a (slot, game) cell the
// highest-ID declaration wins. When codes is non-empty, value mappings
// cover only those games, but the full game list is still returned so
// callers can render all columns.
func (a *App) TimewiseForDate(dateStr string, codes []string) (TimewiseDay, error) {
	if err := validateDateStr(dateStr); err != nil {
		return TimewiseDay{}, err
	}
	filter := codeSet(codes)
	games, err := a.store.ListGames()
	if err != nil {
		return TimewiseDay{}, err
	}
	rows, err := a.store.ListResultsForDate(dateStr)
	if err != nil {
		return TimewiseDay{}, err
	}
	day := TimewiseDay{
		DateStr: dateStr,
		Games:   games,
		Rows:    []SlotRow{},
		Results: []ResultListItem{},
	}
	slotIdx := make(map[int]int)
	for _, r := range rows {
		if !inSet(filter, r.Code) {
			continue
		}
		day.Results = append(day.Results, ResultListItem{
			Result:   r.Result,
			GameCode: r.Code,
			Time:     timeslot.ToHHMM(r.SlotMin),
		})
		idx, ok := slotIdx[r.SlotMin]
		if !ok {
			idx = len(day.Rows)
			slotIdx[r.SlotMin] = idx
			values := make(map[string]string, len(games))
			for _, g := range games {
				if inSet(filter, g.Code) {
					values[g.Code] = domain.SentinelValue
				}
			}
			day.Rows = append(day.Rows, SlotRow{
				SlotMin: r.SlotMin,
				Time:    timeslot.ToHHMM(r.SlotMin),
				Values:  values,
			})
		}
		// Rows arrive ordered by slot then id, so the last write for a
		// cell is the highest-ID declaration.
		day.Rows[idx].Values[r.Code] = r.Value
	}
	return day, nil
}

// SnapshotAt reports, per game, the most recent declaration on dateStr
// at or before the given time. Games with no declaration yet carry the
// sentinel. A non-empty codes filter restricts the games covered.
func (a *App) SnapshotAt(dateStr, timeStr string, codes []string) (Snapshot, error) {
	if err := validateDateStr(dateStr); err != nil {
		return Snapshot{}, err
	}
	slotMax, err := timeslot.ToMinutes(timeStr)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: time %q is not a valid time", ErrInvalidInput, timeStr)
	}
	filter := codeSet(codes)
	games, err := a.store.ListGames()
	if err != nil {
		return Snapshot{}, err
	}
	pairs, err := a.store.SnapshotValues(dateStr, slotMax)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		DateStr: dateStr,
		Time:    timeslot.ToHHMM(slotMax),
		Values:  make(map[string]string, len(games)),
	}
	for _, g := range games {
		if inSet(filter, g.Code) {
			snap.Values[g.Code] = domain.SentinelValue
		}
	}
	for _, p := range pairs {
		if inSet(filter, p.Code) {
			snap.Values[p.Code] = p.Value
		}
	}
	return snap, nil
}

// MonthlyFinals builds the month table: per date with any declarations,
// the end-of-day value per game. A non-empty codes filter restricts which
// games appear in the per-day mappings.
func (a *App) MonthlyFinals(year, month int, codes []string) (MonthlyTable, error) {
	if year < 2000 || year > 2200 {
		return MonthlyTable{}, fmt.Errorf("%w: year %d out of range", ErrInvalidInput, year)
	}
	if month < 1 || month > 12 {
		return MonthlyTable{}, fmt.Errorf("%w: month %d out of range", ErrInvalidInput, month)
	}
	filter := codeSet(codes)
	games, err := a.store.ListGames()
	if err != nil {
		return MonthlyTable{}, err
	}
	finals, err := a.store.MonthlyFinals(year, month)
	if err != nil {
		return MonthlyTable{}, err
	}
	table := MonthlyTable{
		Year:  year,
		Month: month,
		Games: games,
		Days:  []MonthlyDay{},
	}
	dayIdx := make(map[string]int)
	// finals arrive date ascending, so days are appended in order.
	for _, f := range finals {
		if !inSet(filter, f.Code) {
			continue
		}
		idx, ok := dayIdx[f.DateStr]
		if !ok {
			idx = len(table.Days)
			dayIdx[f.DateStr] = idx
			values := make(map[string]string, len(games))
			for _, g := range games {
				if inSet(filter, g.Code) {
					values[g.Code] = domain.SentinelValue
				}
			}
			table.Days = append(table.Days, MonthlyDay{DateStr: f.DateStr, Values: values})
		}
		table.Days[idx].Values[f.Code] = f.Value
	}
	return table, nil
}
