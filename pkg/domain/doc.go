/*
Package domain contains the core domain models of the Synthex extractor.

It defines the transient entities of a single submission round trip and the
ambient session context that the web, CLI and MCP front-ends pass around
explicitly. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - ActionList: The ordered, opaque step strings returned by the extraction service.
  - Step: A 1-based numbered projection of a single action, used for display.
  - Outcome: What the user sees after a submission (warning, info, success or error).
  - Credential: An opaque bearer token. It is never interpreted and never logged.
  - Session: The explicit UI context (current page, theme, credential, status).
*/
package domain
