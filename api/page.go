package api

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"slices"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/toast"
	"github.com/garnizeh/crackedclub/internal/waitlist"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

// PageHandler renders the landing page and accepts its plain form posts.
// Every post redirects back to / so a reload never resubmits.
type PageHandler struct {
	join            *JoinHandler
	waitlist        *WaitlistHandler
	twitterOptional bool
	showWaitlist    bool
}

func NewPageHandler(join *JoinHandler, wl *WaitlistHandler, twitterOptional, showWaitlist bool) *PageHandler {
	return &PageHandler{join: join, waitlist: wl, twitterOptional: twitterOptional, showWaitlist: showWaitlist}
}

type choice struct {
	Value   string
	Label   string
	Checked bool
}

type pageData struct {
	Join               application.View
	Reasons            []choice
	Interests          []choice
	SkillLevels        []choice
	Discoveries        []choice
	Toasts             []toast.Notification
	TwitterOptional    bool
	ShowWaitlist       bool
	WaitlistEmail      string
	WaitlistSubmitting bool
	WaitlistError      string
}

func choices[T ~string](opts []application.Option, selected []T) []choice {
	out := make([]choice, 0, len(opts))
	for _, o := range opts {
		out = append(out, choice{Value: o.Value, Label: o.Label, Checked: slices.Contains(selected, T(o.Value))})
	}
	return out
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	view := sess.Join.View()
	app := view.Application

	data := pageData{
		Join:               view,
		Reasons:            choices(application.ReasonOptions, app.Reasons),
		Interests:          choices(application.InterestOptions, app.Interests),
		SkillLevels:        choices(application.SkillLevelOptions, []application.SkillLevel{app.SkillLevel}),
		Discoveries:        choices(application.DiscoveryOptions, []application.Discovery{app.Discovery}),
		Toasts:             sess.Toasts.Drain(),
		TwitterOptional:    h.twitterOptional,
		ShowWaitlist:       h.showWaitlist,
		WaitlistEmail:      sess.Waitlist.Email(),
		WaitlistSubmitting: sess.Waitlist.Submitting(),
	}
	if r.URL.Query().Get("waitlist") == string(waitlist.ResultInvalid) {
		data.WaitlistError = waitlist.ErrInvalidEmail.Error()
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Error("render page", slog.Any("err", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	sess.Join.Open()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	sess.Join.Close()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Submit takes the whole dialog as one form post. Invalid input keeps the
// dialog open with its field errors; outcomes surface as notifications.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	f := r.PostForm
	a := application.Application{
		Email:          f.Get(application.FieldEmail),
		Twitter:        f.Get(application.FieldTwitter),
		Website:        f.Get(application.FieldWebsite),
		Why:            f.Get(application.FieldWhy),
		SkillLevel:     application.SkillLevel(f.Get(application.FieldSkillLevel)),
		Discovery:      application.Discovery(f.Get(application.FieldDiscovery)),
		DiscoveryOther: f.Get(application.FieldDiscoveryOther),
		Expectations:   f.Get(application.FieldExpectations),
	}
	for _, v := range f[application.FieldReasons] {
		a.Reasons = append(a.Reasons, application.Reason(v))
	}
	for _, v := range f[application.FieldInterests] {
		a.Interests = append(a.Interests, application.Interest(v))
	}

	sess.Join.Open()
	if sess.Join.State() == application.StateIdle {
		sess.Join.Replace(a)
	}
	h.join.submit(r, sess.Join)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) Waitlist(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	res, _ := h.waitlist.submit(r, sess.Waitlist, r.PostForm.Get("email"))
	target := "/"
	if res == waitlist.ResultInvalid {
		target = "/?waitlist=invalid"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
