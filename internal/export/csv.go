package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kursverein/kursanmeldung/internal/models"
)

// CSVHeader is the fixed column order of the registration export. Tools
// downstream parse by position, so the order must not change.
var CSVHeader = []string{
	"course", "first_name", "last_name", "email",
	"status", "terms_accepted", "price", "created",
}

// WriteRegistrationsCSV writes one row per registration after the header.
// Each registration must have its Course preloaded for the name and the
// price computation.
func WriteRegistrationsCSV(w io.Writer, regs []models.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for i := range regs {
		reg := &regs[i]
		rec := []string{
			reg.Course.Name,
			reg.FirstName,
			reg.LastName,
			reg.Email,
			reg.Status,
			strconv.FormatBool(reg.TermsAccepted),
			reg.Price().String(),
			reg.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
