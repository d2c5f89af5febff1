package services

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const importWorksheetName = "Import"

// importRow is one raw spreadsheet row, every cell kept as text. Data rows
// start on Excel row 3 (row 1 is a usage hint, row 2 the header).
type importRow struct {
	RowNumber int

	Scope              string
	TemplateName       string
	TemplateType       string
	Title              string
	Description        string
	TargetSectionOrder string

	SectionOrder string
	SectionTitle string

	QuestionOrder string
	QuestionType  string
	IsRequired    string
	QuestionTitle string
	TraitKey      string
	Ws            string

	OptionOrder string
	OptionLabel string
	IsCorrect   string
	Score       string
	Wa          string
}

func (r *importRow) hasQuestionOrOptionData() bool {
	return r.QuestionOrder != "" || r.QuestionType != "" || r.IsRequired != "" ||
		r.QuestionTitle != "" || r.TraitKey != "" || r.Ws != "" ||
		r.OptionOrder != "" || r.OptionLabel != "" || r.Score != "" ||
		r.Wa != "" || r.IsCorrect != ""
}

func (r *importRow) isOptionRow() bool {
	return r.OptionOrder != "" || r.OptionLabel != "" || r.Score != "" ||
		r.Wa != "" || r.IsCorrect != ""
}

// readImportRows loads the Import worksheet and maps cells by their header
// title, so column order in the sheet does not matter.
func readImportRows(reader io.Reader) ([]importRow, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer file.Close()

	rawRows, err := file.GetRows(importWorksheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", importWorksheetName, err)
	}
	if len(rawRows) < 2 {
		return []importRow{}, nil
	}

	headerIndex := make(map[string]int, len(rawRows[1]))
	for i, header := range rawRows[1] {
		headerIndex[strings.TrimSpace(header)] = i
	}

	cell := func(cells []string, header string) string {
		idx, ok := headerIndex[header]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	rows := make([]importRow, 0, len(rawRows)-2)
	for i, cells := range rawRows[2:] {
		row := importRow{
			RowNumber:          i + 3,
			Scope:              cell(cells, "Scope"),
			TemplateName:       cell(cells, "TemplateName"),
			TemplateType:       cell(cells, "TemplateType"),
			Title:              cell(cells, "Title"),
			Description:        cell(cells, "Description"),
			TargetSectionOrder: cell(cells, "TargetSectionOrder"),
			SectionOrder:       cell(cells, "SectionOrder"),
			SectionTitle:       cell(cells, "SectionTitle"),
			QuestionOrder:      cell(cells, "QuestionOrder"),
			QuestionType:       cell(cells, "QuestionType"),
			IsRequired:         cell(cells, "IsRequired"),
			QuestionTitle:      cell(cells, "QuestionTitle"),
			TraitKey:           cell(cells, "TraitKey"),
			Ws:                 cell(cells, "Ws"),
			OptionOrder:        cell(cells, "OptionOrder"),
			OptionLabel:        cell(cells, "OptionLabel"),
			IsCorrect:          cell(cells, "IsCorrect"),
			Score:              cell(cells, "Score"),
			Wa:                 cell(cells, "Wa"),
		}
		if row.QuestionTitle == "" {
			row.QuestionTitle = cell(cells, "PromptText")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// applyOverrides stamps request-level context onto every row; the sheet then
// only needs to carry section/question/option content.
func applyOverrides(rows []importRow, request ImportRequest) {
	for i := range rows {
		if request.Scope != "" {
			rows[i].Scope = string(request.Scope)
		}
		if request.TemplateName != "" {
			rows[i].TemplateName = strings.TrimSpace(request.TemplateName)
		}
		if request.TemplateType != "" {
			rows[i].TemplateType = strings.TrimSpace(request.TemplateType)
		}
		if request.TargetSectionOrder != nil {
			rows[i].TargetSectionOrder = strconv.Itoa(*request.TargetSectionOrder)
		}
	}
}

// applyCarryForward lets users leave repeated cells blank to mean "same as
// the previous row". Question identity carries forward only onto option rows
// after the first option, so a forgotten QuestionOrder on a new question
// shows up as a validation error instead of silently inheriting the previous
// question.
func applyCarryForward(rows []importRow) {
	for i := 1; i < len(rows); i++ {
		row, prev := &rows[i], &rows[i-1]

		if row.Scope == "" {
			row.Scope = prev.Scope
		}
		if row.TemplateName == "" {
			row.TemplateName = prev.TemplateName
		}
		if row.TemplateType == "" {
			row.TemplateType = prev.TemplateType
		}
		if row.Title == "" {
			row.Title = prev.Title
		}
		if row.Description == "" {
			row.Description = prev.Description
		}
		if row.TargetSectionOrder == "" {
			row.TargetSectionOrder = prev.TargetSectionOrder
		}

		sameSectionTitle := row.SectionTitle == "" ||
			(prev.SectionTitle != "" && strings.EqualFold(row.SectionTitle, prev.SectionTitle))
		if row.hasQuestionOrOptionData() && row.SectionOrder == "" && sameSectionTitle {
			row.SectionOrder = prev.SectionOrder
		}

		if row.isOptionRow() {
			optionOrder, ok := parsePositiveInt(row.OptionOrder)
			if ok && optionOrder > 1 {
				if row.SectionOrder == "" {
					row.SectionOrder = prev.SectionOrder
				}
				if row.SectionTitle == "" {
					row.SectionTitle = prev.SectionTitle
				}
				if row.QuestionOrder == "" {
					row.QuestionOrder = prev.QuestionOrder
				}
				if row.QuestionType == "" {
					row.QuestionType = prev.QuestionType
				}
				if row.IsRequired == "" {
					row.IsRequired = prev.IsRequired
				}
				if row.QuestionTitle == "" {
					row.QuestionTitle = prev.QuestionTitle
				}
				if row.TraitKey == "" {
					row.TraitKey = prev.TraitKey
				}
				if row.Ws == "" {
					row.Ws = prev.Ws
				}
			}
		}
	}
}

// parsePositiveInt accepts plain integers and integral decimals ("1.0"),
// which spreadsheet tools emit for numeric cells.
func parsePositiveInt(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, v > 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func parseFloat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseImportBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func parseNullableBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		v := true
		return &v
	case "false", "no", "0":
		v := false
		return &v
	}
	return nil
}
