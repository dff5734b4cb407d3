package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/http/middleware"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/service"
	"suctracker/backend/services/checkin-service/internal/validation"
)

var carPage = template.Must(template.New("car").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Supercharger check-in</title></head>
<body>
{{if .Message}}<p class="{{if .Failed}}error{{else}}ok{{end}}">{{.Message}}</p>{{end}}
<form method="post" action="/car">
<p>Station id <input name="locationId" value="{{.LocationID}}"></p>
{{if .Title}}<p>{{.Title}}</p>{{end}}
<p>Time <input name="time" value="{{.Time}}"></p>
<p>Stalls <input name="stalls" value="{{.Stalls}}"></p>
<p>Charging <input name="charging"> Blocked <input name="blocked"> Waiting <input name="waiting"></p>
<p>Problem <select name="problem">{{range .Problems}}<option>{{.}}</option>{{end}}</select></p>
{{if .StallNames}}<p>{{range .StallNames}}<label><input type="checkbox" name="affectedStalls" value="{{.}}">{{.}}</label> {{end}}</p>{{end}}
<p>User <input name="tffUserId" value="{{.UserID}}"></p>
<p>Notes <input name="notes"></p>
<p><input type="submit" value="Check in"></p>
</form>
</body>
</html>
`))

type carView struct {
	Message    string
	Failed     bool
	LocationID string
	Title      string
	Time       string
	Stalls     string
	UserID     string
	Problems   []string
	StallNames []string
}

// CarHandlers serves the legacy form for in-car browsers.
type CarHandlers struct {
	checkins CheckinService
	stations validation.StationFinder
	clock    clockwork.Clock
	loc      *time.Location
	logger   *zap.Logger
}

// NewCarHandlers returns handler. loc is the zone the simple time format is entered in.
func NewCarHandlers(checkins CheckinService, stations validation.StationFinder, clock clockwork.Clock, loc *time.Location, logger *zap.Logger) *CarHandlers {
	return &CarHandlers{checkins: checkins, stations: stations, clock: clock, loc: loc, logger: logger}
}

// Show handles GET /car. locationId preselects a station and its stalls.
func (h *CarHandlers) Show(w http.ResponseWriter, r *http.Request) {
	view := h.view(r, strings.TrimSpace(r.URL.Query().Get("locationId")), r.URL.Query().Get("tffUserId"))
	h.render(w, http.StatusOK, view)
}

// Submit handles POST /car with form-encoded fields.
func (h *CarHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, carView{Message: "could not read the form", Failed: true, Problems: models.Problems})
		return
	}

	fields := validation.FieldsFromForm(r.PostForm, service.FieldAffectedStalls)
	view := h.view(r, strings.TrimSpace(r.PostForm.Get(service.FieldLocationID)), r.PostForm.Get(service.FieldUserID))

	_, err := h.checkins.Submit(r.Context(), fields, service.SubmitterMeta{
		Source:    models.SourceForm,
		UserAgent: r.UserAgent(),
		IP:        middleware.ClientIP(r),
	})
	if err != nil {
		view.Failed = true
		var verr *validation.Error
		if !errors.As(err, &verr) {
			h.logger.Error("form checkin failed", zap.Error(err))
			view.Message = "internal error, please try again"
			h.render(w, http.StatusInternalServerError, view)
			return
		}
		view.Message = verr.Error()
		h.render(w, http.StatusBadRequest, view)
		return
	}

	view.Message = "Thank you, check-in saved."
	h.render(w, http.StatusOK, view)
}

func (h *CarHandlers) view(r *http.Request, locationID, userID string) carView {
	view := carView{
		LocationID: locationID,
		UserID:     userID,
		Time:       h.clock.Now().In(h.loc).Format(validation.SimpleLayout),
		Problems:   models.Problems,
	}
	if locationID == "" {
		return view
	}
	station, err := h.stations.FindByLocationID(r.Context(), locationID)
	if err != nil {
		if !errors.Is(err, models.ErrStationNotFound) {
			h.logger.Warn("form station lookup failed", zap.String("location_id", locationID), zap.Error(err))
		}
		return view
	}
	view.Title = station.Title
	if station.Stalls != nil {
		view.Stalls = strconv.Itoa(*station.Stalls)
		view.StallNames = validation.StallNames(*station.Stalls)
	}
	return view
}

func (h *CarHandlers) render(w http.ResponseWriter, status int, view carView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := carPage.Execute(w, view); err != nil {
		h.logger.Warn("render car form failed", zap.Error(err))
	}
}
