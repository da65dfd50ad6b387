// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - IndexingService: walks workspaces, chunks, embeds and stores files
//   - SearchService: embeds queries and ranks chunks by cosine distance
//   - BrowseService: read-only navigation of workspaces, folders and files
//   - SettingsService: typed access to the configuration store
package services
