// Package portal drives the legacy Mercante payment portal through
// Playwright.
//
// The portal is a frameset application from another era: frames are
// reassigned server-side without the top-level address changing,
// element ids are unstable between deployments, and the only reliable
// signal that a payment went through is a fixed text marker rendered
// somewhere in one of the frames. The package is organized around
// those constraints:
//
//  1. Session: one launched browser per payment attempt, optionally
//     left open after the result for operator inspection.
//  2. Semantic location: every screen is found by searching all
//     frames for known text or controls, never by frame index.
//  3. Strategy lists: each interaction carries several independent
//     locator strategies tried in order; a step fails only when all
//     are exhausted.
//  4. Terminal marker: success is decided exclusively by one tested
//     predicate over frame text. Transport status is never trusted.
//
// The pay confirmation dialog is the actual point of no return. It is
// accepted only when the caller explicitly authorized it; the default
// is to dismiss, so nothing in this package can complete a payment
// implicitly.
package portal
