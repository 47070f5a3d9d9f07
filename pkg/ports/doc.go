/*
Package ports defines the driven ports (interfaces) of the coaching engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various responders, generation backends, storage backends
and lock providers.

# Key Interfaces

  - Responder: a capability that handles the turns of one or more stages.
  - Generator: the text-generation backend reached through call-and-response.
  - SessionStore: Responsible for persisting and loading Session records.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
