package models

// ReferenceKind — тип материала-референса.
type ReferenceKind string

const (
	ReferenceURL   ReferenceKind = "url"
	ReferenceImage ReferenceKind = "image"
	ReferencePDF   ReferenceKind = "pdf"
)

// ReferenceUsage — как модель должна использовать референс.
type ReferenceUsage string

const (
	UsageInspiration ReferenceUsage = "inspiration"
	UsageInclude     ReferenceUsage = "include"
)

// Reference — материал, приложенный к запросу на генерацию.
type Reference struct {
	Kind  ReferenceKind
	URL   string
	Name  string
	Usage ReferenceUsage
}

// PageSummary — краткое содержание веб-страницы.
type PageSummary struct {
	URL         string
	Title       string
	Description string
	Excerpt     string
}

// UploadedReference — подтверждённый загруженный файл.
type UploadedReference struct {
	Key  string
	URL  string
	Kind ReferenceKind
}
