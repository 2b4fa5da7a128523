// Package docdex embeds the docdex document index in a Go program: tabular
// file ingestion with schema inference, document CRUD and multi-collection
// search over bleve (in-process) or Redis with the query engine.
//
// Every operation is scoped to a tenant; collections are addressed by label.
//
//	client, _ := docdex.New(docdex.WithBleve("/var/lib/docdex"))
//	defer client.Close()
//
//	snap, _ := client.Ingest(ctx, "acme", []docdex.File{{Path: "orders.csv", IDField: "order_id"}})
//	page, _ := client.Search("acme").
//	    In("orders").
//	    Where("status", "paid").
//	    Between("total", 10, 100).
//	    SortBy("total", true).
//	    Limit(20).
//	    Do(ctx)
package docdex
