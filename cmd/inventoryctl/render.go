package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fairyhunter13/inventory-dashboard-client/internal/dashboard"
	"github.com/fairyhunter13/inventory-dashboard-client/internal/model"
)

func renderList(w io.Writer, v dashboard.ListView) {
	switch {
	case v.Loading:
		fmt.Fprintln(w, dashboard.MsgLoadingList)
		return
	case v.Error != "":
		fmt.Fprintln(w, v.Error)
		return
	case v.Empty:
		fmt.Fprintln(w, dashboard.MsgNoProducts)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSKU\tSTOCK\tPRICE\tCATEGORY")
	for _, p := range v.Products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t$%s\t%s\n", p.ID, p.Name, p.SKU, p.Stock, p.Price, p.Category)
	}
	tw.Flush()
}

func renderCategories(w io.Writer) {
	for _, c := range model.Categories {
		fmt.Fprintln(w, c)
	}
}
