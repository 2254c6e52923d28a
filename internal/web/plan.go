package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"recipe-planner/internal/app"
	"recipe-planner/internal/planner"
)

// moveResponse pairs the resulting plan with what the gesture did.
type moveResponse struct {
	Plan    planner.WeeklyPlan  `json:"plan"`
	Outcome planner.MoveOutcome `json:"outcome"`
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.app.Plan(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, plan)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req app.MoveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	plan, outcome, err := s.app.MovePlan(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, moveResponse{Plan: plan, Outcome: outcome})
}

func (s *Server) handleRemoveMeal(w http.ResponseWriter, r *http.Request) {
	slot := planner.SlotKey{
		Day:      planner.Day(strings.ToLower(chi.URLParam(r, "day"))),
		MealType: planner.MealType(strings.ToLower(chi.URLParam(r, "mealType"))),
	}
	plan, err := s.app.RemoveMeal(r.Context(), slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, plan)
}

func (s *Server) handleClearPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.app.ClearPlan(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plan, Message: "Meal plan cleared"})
}

func (s *Server) handlePlanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.PlanStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, stats)
}

func (s *Server) handleExportPlan(w http.ResponseWriter, r *http.Request) {
	export, err := s.app.ExportPlan(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	download(w, export.Filename, export.Data)
}

func (s *Server) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.ShoppingList(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, list)
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req describeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	plan, err := s.app.GeneratePlan(r.Context(), req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ok(w, plan)
}

func (s *Server) handlePlanEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, func(ctx context.Context) (PlanEvent, error) {
		plan, err := s.app.Plan(ctx)
		if err != nil {
			return PlanEvent{}, err
		}
		return PlanEvent{Type: "plan.snapshot", Plan: plan}, nil
	})
}
