// Package kbsearch embeds the kbsearch ranking pipeline in a Go program
// without running the HTTP server.
//
// The client wires the same analyzer, document store, counter store and
// ranking policy as the service binary:
//
//	client, _ := kbsearch.New(ctx, kbsearch.WithRedis("localhost:6379", ""))
//	defer client.Close(ctx)
//
//	_, _ = client.Documents().Create(ctx, kbsearch.Document{
//	    ID:    "reset-password",
//	    Title: "Reset your password",
//	    Body:  "Open settings and choose security.",
//	})
//	res, _ := client.Search(ctx, "password", kbsearch.WithLocale("en"), kbsearch.WithLimit(10))
//	for _, hit := range res.Hits {
//	    fmt.Println(hit.ID, hit.Score, hit.ViewCount)
//	}
//
// WithMemory and WithBleve keep everything in process, which is handy for tests.
package kbsearch
