package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipe-planner/internal/recipe"
)

type describeRequest struct {
	Description string `json:"description"`
}

type clipRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.app.ListRecipes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, recipes)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.app.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, rec)
}

func (s *Server) handleAddRecipe(w http.ResponseWriter, r *http.Request) {
	var in recipe.Input
	if err := decodeJSON(r, &in); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	rec, err := s.app.AddRecipe(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: rec, Message: "Recipe added"})
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	var in recipe.Input
	if err := decodeJSON(r, &in); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	rec, err := s.app.UpdateRecipe(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rec, Message: "Recipe updated"})
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteRecipe(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Recipe deleted"})
}

func (s *Server) handleRecipeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.RecipeStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, stats)
}

func (s *Server) handleExportRecipes(w http.ResponseWriter, r *http.Request) {
	export, err := s.app.ExportCatalog(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	download(w, export.Filename, export.Data)
}

func (s *Server) handleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	var req describeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	draft, err := s.app.GenerateRecipe(r.Context(), req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, draft)
}

func (s *Server) handleClipRecipe(w http.ResponseWriter, r *http.Request) {
	var req clipRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	draft, err := s.app.ClipRecipe(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, draft)
}
