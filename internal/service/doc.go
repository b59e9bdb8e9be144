// Package service contains the write orchestrator for schedule-affecting
// task operations. It sequences lock acquisition, availability validation,
// the authoritative task write, and the submission of the asynchronous
// projection rebuild.
package service
