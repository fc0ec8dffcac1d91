package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

type loginView struct {
	Providers []string
	Error     string
}

type appView struct {
	User      domain.User
	Bookmarks []domain.Bookmark
	Error     string
	URL       string
	Title     string
}

type tokenView struct {
	Token   string
	Expires time.Time
	Server  string
}

// Home sends signed-in users to the app and everyone else to the login page.
func Home(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Auth.CurrentUser(r); err == nil {
			http.Redirect(w, r, "/app", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Auth.CurrentUser(r); err == nil {
			http.Redirect(w, r, "/app", http.StatusSeeOther)
			return
		}
		view := loginView{Providers: d.Auth.Providers()}
		if r.URL.Query().Get("error") != "" {
			view.Error = "Sign-in failed, please try again"
		}
		render(w, d.Logger, loginPage, "layout.html", http.StatusOK, view)
	}
}

// App renders the bookmark list. ?partial=list renders only the entries,
// which the page script fetches on every feed event.
func App(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())
		view := appView{User: user}

		list, err := d.Bookmarks.List(r.Context(), user)
		status := http.StatusOK
		if err != nil {
			d.Logger.Warn("failed to list bookmarks", logger.String("user", user.ID), logger.Error(err))
			view.Error = domain.UserMessage(err)
			status = http.StatusBadGateway
		}
		view.Bookmarks = list

		if r.URL.Query().Get("partial") == "list" {
			render(w, d.Logger, appPage, "list", status, view)
			return
		}
		render(w, d.Logger, appPage, "layout.html", status, view)
	}
}

// AddBookmarkForm handles the add form. Failures re-render the page with
// the message and the submitted values.
func AddBookmarkForm(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		rawURL, rawTitle := r.PostForm.Get("url"), r.PostForm.Get("title")

		if _, err := d.Bookmarks.Add(r.Context(), user, rawURL, rawTitle); err != nil {
			renderFailure(w, r, d, user, err, rawURL, rawTitle)
			return
		}
		http.Redirect(w, r, "/app", http.StatusSeeOther)
	}
}

func DeleteBookmarkForm(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())
		if err := d.Bookmarks.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
			renderFailure(w, r, d, user, err, "", "")
			return
		}
		http.Redirect(w, r, "/app", http.StatusSeeOther)
	}
}

func renderFailure(w http.ResponseWriter, r *http.Request, d deps.Deps, user domain.User, err error, rawURL, rawTitle string) {
	if !domain.IsValidation(err) {
		d.Logger.Warn("bookmark mutation failed", logger.String("user", user.ID), logger.Error(err))
	}
	view := appView{
		User:  user,
		Error: domain.UserMessage(err),
		URL:   rawURL,
		Title: rawTitle,
	}
	// the list is resynchronized from storage, whatever the failure
	if list, listErr := d.Bookmarks.List(r.Context(), user); listErr == nil {
		view.Bookmarks = list
	}
	render(w, d.Logger, appPage, "layout.html", statusFor(err), view)
}

// Token shows a fresh session token for marksctl.
func Token(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())
		token, expires, err := d.Auth.Sessions().Issue(user)
		if err != nil {
			d.Logger.Error("failed to issue cli token", logger.Error(err))
			http.Error(w, domain.GenericFailureMessage, http.StatusInternalServerError)
			return
		}
		render(w, d.Logger, tokenPage, "layout.html", http.StatusOK, tokenView{
			Token:   token,
			Expires: expires,
			Server:  d.BaseURL,
		})
	}
}
