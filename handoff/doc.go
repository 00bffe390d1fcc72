// Package handoff implements structured work transfer between agents in a
// sequential chain. The manager asks the handoff oracle whether work should
// move to a different agent and, when it should, drafts a HandoffPackage:
// work completed, remaining objectives, success criteria, artifacts, quality
// checklist, and an effort estimate. Oracle failures never fail the run:
// evaluation fails open to pass-through and packaging falls back to a
// best-effort package.
package handoff
