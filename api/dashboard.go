package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/seenimoa/stocksentiment/internal/dashboard"
	"github.com/seenimoa/stocksentiment/internal/registry"
	"github.com/seenimoa/stocksentiment/internal/report"
	"github.com/seenimoa/stocksentiment/pkg/models"
)

// handleDashboard renders the HTML dashboard. The sector filter narrows
// the company selector; analyze=1 runs the analysis for the selected
// company and renders its results below the settings.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reg := s.ctrl.Registry()

	sector := strings.TrimSpace(q.Get("sector"))
	if sector == "" {
		sector = registry.AllSectors
	}
	companies := reg.ListBySector(sector)
	if len(companies) == 0 {
		sector = registry.AllSectors
		companies = reg.ListBySector(sector)
	}
	selected := pickCompany(companies, q.Get("ticker"))

	days := s.ctrl.LookbackDays()
	if n, err := strconv.Atoi(q.Get("days")); err == nil && n >= 1 && n <= MaxLookbackDays {
		days = n
	}

	var (
		a      *models.Analysis
		errMsg string
	)
	if q.Get("analyze") != "" && selected != "" {
		ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
		defer cancel()

		var err error
		a, err = s.ctrl.Analyze(ctx, dashboard.Request{Ticker: selected, LookbackDays: days})
		if err != nil {
			errMsg = err.Error()
		}
	}

	d := report.NewPageData(a, s.now())
	d.Sectors = reg.Sectors()
	d.Sector = sector
	d.Companies = companies
	d.Selected = selected
	d.LookbackDays = days
	d.NeedsKey = s.ctrl.NeedsNewsKey()
	d.Error = errMsg

	var buf bytes.Buffer
	if err := report.RenderPage(&buf, d); err != nil {
		s.logger.Error().Err(err).Msg("render dashboard")
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck
}

// handleNewsKeyForm accepts the key prompt form and returns to the dashboard.
func (s *Server) handleNewsKeyForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	key := strings.TrimSpace(r.PostFormValue("news_key"))
	if key == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.setNewsKey(key); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// pickCompany returns ticker when it is among companies, else the first
// company, else "".
func pickCompany(companies []models.Company, ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	for _, c := range companies {
		if c.Ticker == ticker {
			return ticker
		}
	}
	if len(companies) > 0 {
		return companies[0].Ticker
	}
	return ""
}
