package models

// ImportScope controls what an XLSX import is allowed to touch.
type ImportScope string

const (
	ImportCreateTemplate   ImportScope = "CreateTemplate"
	ImportAppendToTemplate ImportScope = "AppendToTemplate"
	ImportAppendToSection  ImportScope = "AppendToSection"
)

type ImportSeverity string

const (
	ImportSeverityError   ImportSeverity = "Error"
	ImportSeverityWarning ImportSeverity = "Warning"
)

// ImportValidationError addresses one problem in the import sheet by Excel
// row number and column header. Warnings never block the import.
type ImportValidationError struct {
	Row      int            `json:"row"`
	Column   string         `json:"column"`
	Message  string         `json:"message"`
	Severity ImportSeverity `json:"severity"`
}

func (e ImportValidationError) IsError() bool {
	return e.Severity == ImportSeverityError
}

// ImportValidationResult is the dry-run outcome of an import sheet, with
// enough template context for the caller to warn about version forks before
// executing.
type ImportValidationResult struct {
	IsValid               bool                    `json:"is_valid"`
	Scope                 ImportScope             `json:"scope,omitempty"`
	TemplateName          string                  `json:"template_name"`
	TemplateType          string                  `json:"template_type"`
	TemplateExists        bool                    `json:"template_exists"`
	ExistingLatestVersion *int                    `json:"existing_latest_version,omitempty"`
	ExistingLatestInUse   bool                    `json:"existing_latest_in_use"`
	TotalRows             int                     `json:"total_rows"`
	SectionsCount         int                     `json:"sections_count"`
	QuestionsCount        int                     `json:"questions_count"`
	OptionsCount          int                     `json:"options_count"`
	Errors                []ImportValidationError `json:"errors"`
}

// ImportResult summarizes an executed import.
type ImportResult struct {
	TemplateName       string                  `json:"template_name"`
	TemplateVersion    int                     `json:"template_version"`
	TemplateType       string                  `json:"template_type"`
	Scope              ImportScope             `json:"scope"`
	CreatedNewTemplate bool                    `json:"created_new_template"`
	CreatedNewVersion  bool                    `json:"created_new_version"`
	SectionsCount      int                     `json:"sections_count"`
	QuestionsCount     int                     `json:"questions_count"`
	OptionsCount       int                     `json:"options_count"`
	Messages           []ImportValidationError `json:"messages"`
}
