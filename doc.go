// Package backend provides the VoxChat composer API server.

// The API documentation is organized into subpackages:

// - internal/composer: Composer session state machine (text, attachments, recording)
// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and token issuing
// - internal/stream: Stream.io chat integration
// - internal/websocket: WebSocket server for real-time composer updates
// - internal/recorder: Server-side voice recording
// - internal/audio: Voice note encoding and publishing
// - internal/storage: File storage (S3) operations
// - internal/drafts: Draft persistence (Redis + Postgres)
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (auth, rate limiting, metrics)
// - internal/retention: Background cleanup of stale composer data

// See the individual package documentation for detailed API reference.
package backend
