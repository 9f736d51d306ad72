/*
Package ports defines the driven ports (interfaces) of holon.

These interfaces decouple the engine and the control surfaces from where
workflow sources and provider credentials live, so the same code runs
against memory, a directory on disk or a shared Redis.

# Key Interfaces

  - SourceStore: loads and saves workflow source files by name.
  - Watchable: notifies about sources changed behind the store's back.
  - CredentialStore: keeps provider credentials (key/value maps).
  - DistributedLocker: serializes read-modify-write edits across replicas.

Contract suites (RunSourceStoreContract, RunCredentialStoreContract) are
exported so every adapter runs the same checks.
*/
package ports
