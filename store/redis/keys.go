package redis

import "strings"

// Redis key naming conventions for TrustWork data.
// All keys are prefixed with "trustwork:" to avoid collisions.

const keyPrefix = "trustwork:"

// ── Job keys ──

// jobSeqKey is the counter INCRed for each new job id.
const jobSeqKey = keyPrefix + "job_seq"

// jobKey returns the Hash key for a job entity: trustwork:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// jobIDsKey is the Sorted Set of every job id, scored by id.
const jobIDsKey = keyPrefix + "job_ids"

// statusKey returns the Sorted Set of job ids in a status.
func statusKey(status string) string { return keyPrefix + "status:" + status }

// clientKey returns the Sorted Set of job ids posted by addr.
func clientKey(addr string) string { return keyPrefix + "client:" + strings.ToLower(addr) }

// freelancerKey returns the Sorted Set of job ids assigned to addr.
func freelancerKey(addr string) string { return keyPrefix + "freelancer:" + strings.ToLower(addr) }

// ── Escrow keys ──

// transfersKey returns the List of ledger entries of a job.
func transfersKey(id string) string { return keyPrefix + "transfers:" + id }

// creditsKey returns the List of amounts paid out to addr.
func creditsKey(addr string) string { return keyPrefix + "credits:" + strings.ToLower(addr) }
