package workspace

import (
	"os"
	"time"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/export"
	"github.com/jackzampolin/folio/internal/extract"
	"github.com/jackzampolin/folio/internal/pdf"
)

// Session is one loaded source file with its document model and engine.
type Session struct {
	ID       string
	FileName string
	Size     int64
	LoadedAt time.Time

	Document *document.Document
	Engine   *extract.Engine

	source     pdf.Source
	uploadPath string
}

// Info is the JSON form of a session.
type Info struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	Title     string    `json:"title"`
	Size      int64     `json:"size"`
	PageCount int       `json:"page_count"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Info describes the session.
func (s *Session) Info() Info {
	return Info{
		ID:        s.ID,
		FileName:  s.FileName,
		Title:     s.Title(),
		Size:      s.Size,
		PageCount: s.Document.PageCount(),
		LoadedAt:  s.LoadedAt,
	}
}

// Title is the file name without its .pdf extension.
func (s *Session) Title() string {
	return export.Title(s.FileName)
}

// Export renders the document in format f and returns the download name.
func (s *Session) Export(f export.Format) ([]byte, string, error) {
	data, err := export.Export(f, s.Title(), s.Document.Pages())
	if err != nil {
		return nil, "", err
	}
	return data, export.FileName(s.FileName, f), nil
}

func (s *Session) close() {
	s.Engine.Stop()
	s.Engine.Wait()
	s.source.Close()
	if s.uploadPath != "" {
		os.Remove(s.uploadPath)
	}
}
