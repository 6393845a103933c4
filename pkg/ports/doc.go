/*
Package ports defines the driven ports (interfaces) for the Synthex engine.

These interfaces decouple the extraction flow from external implementations,
allowing the engine to work with the real extraction service or a stub, and
with various session storage backends.

# Key Interfaces

  - ActionExtractor: The single outbound seam, converting procedure text into an ActionList.
  - SessionStore: Responsible for persisting and loading the ambient UI Session.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
