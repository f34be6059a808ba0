// Package models defines the domain types shared across the client.
//
// All monetary amounts are float64 denominated in the owning group's
// currency and rounded to two decimal places at presentation boundaries.
// The backend is authoritative for every computed value; the types here
// mirror its JSON wire shapes plus a small number of client-side
// refinements:
//
//   - BalanceKey replaces the backend's dual string keying of balance maps
//     (a user ID for registered members, "ghost_<member_id>" for offline
//     members) with a tagged union parsed once at the API edge, so the
//     prefix convention never leaks into consumers.
//   - Member carries both its per-group member ID and, when the member is
//     linked to an account, a user ID. A ghost member has no user ID.
package models
