package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/warmline/warmline/server/internal/api/respond"
	"github.com/warmline/warmline/server/internal/model"
	"github.com/warmline/warmline/server/internal/scheduler"
	"github.com/warmline/warmline/server/internal/store"
)

// AdminHandler exposes the management surface: schedule/user CRUD, call-log
// reads, and a synchronous scheduler tick. No authentication in this core.
type AdminHandler struct {
	store store.Store
	loop  *scheduler.Loop
}

func NewAdminHandler(st store.Store, loop *scheduler.Loop) *AdminHandler {
	return &AdminHandler{store: st, loop: loop}
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FirstName      string `json:"firstName"`
		PhoneNumber    string `json:"phoneNumber"`
		CompanionName  string `json:"companionName"`
		CompanionVoice string `json:"companionVoice"`
		Interests      string `json:"interests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if in.FirstName == "" || in.PhoneNumber == "" {
		respond.WriteBadRequest(w, "firstName and phoneNumber required")
		return
	}
	u := &model.User{
		FirstName:      in.FirstName,
		PhoneNumber:    in.PhoneNumber,
		CompanionName:  in.CompanionName,
		CompanionVoice: in.CompanionVoice,
		Interests:      in.Interests,
	}
	out, err := h.store.Users().Create(r.Context(), u)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	u, err := h.store.Users().Get(r.Context(), userID)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID    string `json:"userId"`
		DayOfWeek string `json:"dayOfWeek"`
		CallTime  string `json:"callTime"`
		Enabled   *bool  `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if _, err := model.ParseWeekday(in.DayOfWeek); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if _, err := model.ParseClockTime(in.CallTime); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if _, err := h.store.Users().Get(r.Context(), in.UserID); err != nil {
		writeStoreErr(w, err)
		return
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	s := &model.Schedule{
		UserID:    in.UserID,
		DayOfWeek: in.DayOfWeek,
		CallTime:  in.CallTime,
		Enabled:   enabled,
	}
	out, err := h.store.Schedules().Create(r.Context(), s)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *AdminHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Schedules().ListEnabled(r.Context())
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	if out == nil {
		out = []*model.Schedule{}
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["scheduleId"]
	var in struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := h.store.Schedules().SetEnabled(r.Context(), scheduleID, in.Enabled); err != nil {
		writeStoreErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"scheduleId": scheduleID, "enabled": in.Enabled})
}

func (h *AdminHandler) ListCallLogs(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	out, err := h.store.CallLogs().ListByUser(r.Context(), userID)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	if out == nil {
		out = []*model.CallLog{}
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// TriggerTick runs one scheduler tick synchronously and returns its report.
func (h *AdminHandler) TriggerTick(w http.ResponseWriter, r *http.Request) {
	report, err := h.loop.Tick(r.Context())
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, report)
}

func writeStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, err.Error())
		return
	}
	respond.WriteInternalError(w, err.Error())
}
