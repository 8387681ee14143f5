package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"paper-search/internal/registry"
)

type searchRequest struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
	PaperID string `json:"paper_id,omitempty"`
}

type searchResult struct {
	PaperID  string   `json:"paper_id"`
	ChunkID  string   `json:"chunk_id"`
	Text     string   `json:"text"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
	Keywords []string `json:"keywords"`
	Score    float64  `json:"score"`
}

type relatedRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type relatedPaper struct {
	PaperID  string  `json:"paper_id"`
	Title    string  `json:"title"`
	Abstract string  `json:"abstract"`
	Score    float64 `json:"score"`
}

// handleHealth reports index backend reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart PDF, processes it synchronously
// (extraction, metadata, chunking are local work) and runs the remote
// embed+index step in the background. Responds 202 with the paper in
// pending state; the registry tracks completion.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or oversized file upload")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	paper, err := s.pipeline.Process(data, header.Filename)
	if err != nil {
		s.logger.Warn("paper processing failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "processing failed: "+err.Error())
		return
	}

	s.registry.Put(registry.Record{
		PaperID:    paper.PaperID,
		Filename:   header.Filename,
		FileSize:   paper.SourceFileSize,
		UploadedAt: paper.UploadedAt,
		Meta:       paper.Meta,
		Status:     registry.StatusPending,
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()

		if err := s.pipeline.Index(ctx, paper); err != nil {
			s.logger.Error("paper indexing failed", "paper_id", paper.PaperID, "error", err)
			s.registry.SetStatus(paper.PaperID, registry.StatusFailed, err.Error())
			return
		}
		s.registry.SetStatus(paper.PaperID, registry.StatusCompleted, "")
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":           "file uploaded, indexing in background",
		"paper_id":          paper.PaperID,
		"filename":          header.Filename,
		"file_size":         paper.SourceFileSize,
		"chunks":            len(paper.Chunks),
		"processing_status": registry.StatusPending,
	})
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"papers": s.registry.List()})
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.registry.Get(chi.URLParam(r, "paperID"))
	if !ok {
		writeError(w, http.StatusNotFound, "paper not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	chunks, err := s.pipeline.Chunks(r.Context(), paperID)
	if err != nil {
		s.logger.Error("chunk lookup failed", "paper_id", paperID, "error", err)
		writeError(w, http.StatusBadGateway, "chunk lookup failed")
		return
	}

	out := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		out[i] = map[string]any{
			"chunk_id": chunk.ChunkID,
			"text":     chunk.Text,
			"title":    chunk.Title,
			"authors":  chunk.Authors,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"paper_id": paperID, "chunks": out})
}

func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	deleted, err := s.pipeline.Delete(r.Context(), paperID)
	if err != nil {
		s.logger.Error("paper delete failed", "paper_id", paperID, "error", err)
		writeError(w, http.StatusBadGateway, "delete failed")
		return
	}
	s.registry.Delete(paperID)

	writeJSON(w, http.StatusOK, map[string]any{"paper_id": paperID, "deleted_chunks": deleted})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	hits, err := s.pipeline.Search(r.Context(), req.Query, req.TopK, req.PaperID)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}

	results := make([]searchResult, len(hits))
	for i, hit := range hits {
		results[i] = searchResult{
			PaperID:  hit.Chunk.PaperID,
			ChunkID:  hit.Chunk.ChunkID,
			Text:     hit.Chunk.Text,
			Title:    hit.Chunk.Title,
			Authors:  hit.Chunk.Authors,
			Abstract: hit.Chunk.Abstract,
			Keywords: hit.Chunk.Keywords,
			Score:    hit.Score,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": results,
		"total":   len(results),
	})
}

// handleRelated runs a corpus-wide search and collapses chunk hits to
// one entry per paper, keeping each paper's best score.
func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	// Over-fetch chunks: several hits usually map to the same paper.
	topK := req.Limit * 5
	if topK > 100 {
		topK = 100
	}
	hits, err := s.pipeline.Search(r.Context(), req.Query, topK, "")
	if err != nil {
		s.logger.Error("related search failed", "error", err)
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}

	best := make(map[string]relatedPaper)
	for _, hit := range hits {
		existing, ok := best[hit.Chunk.PaperID]
		if !ok || hit.Score > existing.Score {
			best[hit.Chunk.PaperID] = relatedPaper{
				PaperID:  hit.Chunk.PaperID,
				Title:    hit.Chunk.Title,
				Abstract: hit.Chunk.Abstract,
				Score:    hit.Score,
			}
		}
	}

	papers := make([]relatedPaper, 0, len(best))
	for _, paper := range best {
		papers = append(papers, paper)
	}
	sort.Slice(papers, func(i, j int) bool { return papers[i].Score > papers[j].Score })
	if len(papers) > req.Limit {
		papers = papers[:req.Limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":       req.Query,
		"papers":      papers,
		"total_found": len(papers),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
