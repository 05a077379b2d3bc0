// Package relaypoint is the Go client for the Relaypoint collaborative
// project-management service.
//
// The client keeps a local, optimistically-updated view of the entities in
// the active tenant scope. Mutations apply to local state immediately, are
// confirmed against the service, and roll back exactly what they touched
// when the service rejects them; list fetches are sequenced per entity so a
// stale response can never overwrite a newer one, and switching scope
// permanently disposes everything in flight for the old one.
//
// Typical use:
//
//	client, err := relaypoint.New("https://api.example.com")
//	if err != nil { ... }
//	defer client.Close()
//
//	client.Authenticate(token)
//	client.Use(orgID, spaceID)
//
//	if err := client.Tasks.Load(ctx, nil); err != nil { ... }
//	task, err := client.Tasks.Create(ctx, models.Task{Title: "Draft proposal"})
package relaypoint
