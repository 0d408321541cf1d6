package main

import (
	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
	"github.com/MrJamesThe3rd/stockroom/internal/purchase/memstore"
)

var demoCatalog = []purchase.Product{
	{SKU: "KOPI-250", Name: "Kopi Arabika 250g", Price: 65000, Stock: 24},
	{SKU: "TEH-100", Name: "Teh Melati 100g", Price: 18000, Stock: 40},
	{SKU: "GULA-1K", Name: "Gula Pasir 1kg", Price: 17500, Stock: 12},
	{SKU: "SUSU-1L", Name: "Susu UHT 1L", Price: 21000, Stock: 3},
}

// demoService runs the back-office on an in-memory catalog, without a
// database. Nothing survives the process.
func demoService() *purchase.Service {
	store := memstore.New()
	for _, p := range demoCatalog {
		store.AddProduct(p)
	}

	return purchase.NewService(store)
}
