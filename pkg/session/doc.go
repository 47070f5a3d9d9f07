/*
Package session implements session management and persistence orchestration.

Locks is a reference-counted keyed mutex that serializes work per session id.
Manager builds on it to run load, process and save as one critical section
against a ports.SessionStore, optionally coordinated across replicas through a
ports.DistributedLocker.
*/
package session
