package api

import (
	"github.com/gorilla/mux"

	"github.com/warmline/warmline/server/internal/api/recovery"
)

// NewRouter wires all HTTP routes.
func NewRouter(voice *VoiceHandler, admin *AdminHandler, health *HealthHandler) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	// Health
	root.HandleFunc("/health", health.CheckHealth).Methods("GET")

	// Telephony webhook loop
	root.HandleFunc("/telephony/voice/inbound", voice.Inbound).Methods("GET", "POST")
	root.HandleFunc("/telephony/voice/turn", voice.Turn).Methods("POST")
	root.HandleFunc("/telephony/voice/status", voice.Status).Methods("GET", "POST")

	// Cached audio retrieval
	root.HandleFunc("/audio/static-greeting", voice.GreetingAudio).Methods("GET")
	root.HandleFunc("/audio/session-reply", voice.ReplyAudio).Methods("GET")

	// Admin management surface
	root.HandleFunc("/admin/users", admin.CreateUser).Methods("POST")
	root.HandleFunc("/admin/users/{userId}", admin.GetUser).Methods("GET")
	root.HandleFunc("/admin/users/{userId}/call-logs", admin.ListCallLogs).Methods("GET")
	root.HandleFunc("/admin/schedules", admin.CreateSchedule).Methods("POST")
	root.HandleFunc("/admin/schedules", admin.ListSchedules).Methods("GET")
	root.HandleFunc("/admin/schedules/{scheduleId}/enabled", admin.SetScheduleEnabled).Methods("PATCH")
	root.HandleFunc("/admin/scheduler/tick", admin.TriggerTick).Methods("POST")

	return root
}
