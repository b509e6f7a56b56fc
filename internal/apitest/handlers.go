package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/api"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/obs"
)

const notFound = "Product not found"

type productBody struct {
	Name     *string         `json:"name"`
	SKU      *string         `json:"sku"`
	Stock    json.RawMessage `json:"stock"`
	Price    json.RawMessage `json:"price"`
	Category *string         `json:"category"`
}

func (b *Backend) listHandler(w http.ResponseWriter, r *http.Request) {
	if f := b.admit(api.OpGetProducts); f != nil {
		WriteDetail(w, f.status, f.detail)
		return
	}
	writeJSON(w, http.StatusOK, b.Products())
}

func (b *Backend) createHandler(w http.ResponseWriter, r *http.Request) {
	if f := b.admit(api.OpCreateProduct); f != nil {
		WriteDetail(w, f.status, f.detail)
		return
	}
	p, issues := decodeProduct(r.Body)
	if len(issues) > 0 {
		WriteDetail(w, http.StatusUnprocessableEntity, issues)
		return
	}
	b.mu.Lock()
	id := b.insertLocked(p)
	b.mu.Unlock()
	obs.Logger.Debug("product_created", "id", id, "request_id", RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, id)
}

func (b *Backend) updateHandler(w http.ResponseWriter, r *http.Request) {
	if f := b.admit(api.OpUpdateProduct); f != nil {
		WriteDetail(w, f.status, f.detail)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, issues := decodeProduct(r.Body)
	if len(issues) > 0 {
		WriteDetail(w, http.StatusUnprocessableEntity, issues)
		return
	}
	if !b.update(id, p) {
		WriteDetail(w, http.StatusNotFound, notFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) deleteHandler(w http.ResponseWriter, r *http.Request) {
	if f := b.admit(api.OpDeleteProduct); f != nil {
		WriteDetail(w, f.status, f.detail)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !b.remove(id) {
		WriteDetail(w, http.StatusNotFound, notFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, []model.ValidationIssue{
			issue("int_parsing", "Input should be a valid integer, unable to parse string as an integer", "path", "id"),
		})
		return 0, false
	}
	return id, true
}

// decodeProduct validates a create or update body field by field, in the
// order the fields are declared.
func decodeProduct(body io.Reader) (model.Product, []model.ValidationIssue) {
	var pb productBody
	raw, err := io.ReadAll(body)
	if err == nil {
		err = json.Unmarshal(raw, &pb)
	}
	if err != nil {
		return model.Product{}, []model.ValidationIssue{
			issue("json_invalid", "JSON decode error", "body"),
		}
	}

	var issues []model.ValidationIssue
	missing := func(field string) {
		issues = append(issues, issue("missing", "Field required", "body", field))
	}
	var p model.Product

	if pb.Name == nil {
		missing("name")
	} else {
		p.Name = *pb.Name
	}
	if pb.SKU == nil {
		missing("sku")
	} else {
		p.SKU = *pb.SKU
	}

	switch stock := bytes.TrimSpace(pb.Stock); {
	case len(stock) == 0 || string(stock) == "null":
		missing("stock")
	default:
		n, err := strconv.Atoi(strings.Trim(string(stock), `"`))
		if err != nil {
			issues = append(issues, issue("int_parsing", "Input should be a valid integer", "body", "stock"))
		}
		p.Stock = n
	}

	switch price := bytes.TrimSpace(pb.Price); {
	case len(price) == 0 || string(price) == "null":
		missing("price")
	default:
		s := strings.Trim(string(price), `"`)
		if _, err := decimal.NewFromString(s); err != nil {
			issues = append(issues, issue("decimal_parsing", "Input should be a valid decimal", "body", "price"))
		}
		p.Price = s
	}

	if pb.Category == nil {
		missing("category")
	} else {
		p.Category = *pb.Category
	}
	return p, issues
}
