package apitest

import (
	"encoding/json"
	"net/http"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

type detailBody struct {
	Detail any `json:"detail"`
}

// WriteDetail writes {"detail": detail} with status. detail is either a
// string or a list of validation issues.
func WriteDetail(w http.ResponseWriter, status int, detail any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(detailBody{Detail: detail})
}

func issue(typ, msg string, loc ...any) model.ValidationIssue {
	return model.ValidationIssue{Loc: loc, Msg: msg, Type: typ}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
