// Package staff provides the staff directory: the public-facing list of
// staff members shown on the site.
//
// Reads are open to any authenticated user; mutations are admin-only,
// enforced at the API layer via auth policies. A user account may link
// to a staff member through users.staff_id.
package staff
