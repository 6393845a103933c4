/*
Package session implements the ambient UI session and its concurrency rules.

A Session is owned by one interactive user and carries the current page,
theme, credential and submission status. The Manager serializes every
read-modify-write of a session through a reference-counted local lock and,
when configured, a distributed lock, so that a session never has two
submissions in flight, even across replicas.
*/
package session
