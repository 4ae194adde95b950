package handlers

import (
	"net/http"
	"strings"
)

type Flash struct {
	Kind string // "ok" or "error"
	Text string
}

var okText = map[string]string{
	"registered":       "Anmeldung gespeichert. Vielen Dank!",
	"waitlisted":       "Der Kurs ist voll, du stehst auf der Warteliste.",
	"course_saved":     "Kurs gespeichert.",
	"course_deleted":   "Kurs gelöscht.",
	"location_saved":   "Ort gespeichert.",
	"location_deleted": "Ort gelöscht.",
	"reg_deleted":      "Anmeldung gelöscht.",
	"staff_saved":      "Benutzer angelegt.",
}

var errText = map[string]string{
	"bad_login":        "Unbekannter Benutzer oder falsches Passwort.",
	"course_not_found": "Kurs nicht gefunden.",
	"forbidden":        "Keine Berechtigung für diese Aktion.",
	"invalid_input":    "Ungültige Eingabe.",
	"username_taken":   "Benutzername bereits vergeben.",
}

// MakeFlash reads ?ok= / ?error= keys (or explicit strings) into a Flash.
func MakeFlash(r *http.Request, errStr, msgStr string) *Flash {
	q := r.URL.Query()

	errRaw := strings.TrimSpace(q.Get("error"))
	okRaw := strings.TrimSpace(q.Get("ok"))

	if errRaw != "" {
		key := strings.ToLower(errRaw)
		if t, ok := errText[key]; ok {
			return &Flash{Kind: "error", Text: t}
		}
		return &Flash{Kind: "error", Text: errRaw}
	}
	if okRaw != "" {
		key := strings.ToLower(okRaw)
		if t, ok := okText[key]; ok {
			return &Flash{Kind: "ok", Text: t}
		}
		return &Flash{Kind: "ok", Text: okRaw}
	}

	if errStr != "" {
		return &Flash{Kind: "error", Text: errStr}
	}
	if msgStr != "" {
		return &Flash{Kind: "ok", Text: msgStr}
	}
	return nil
}
