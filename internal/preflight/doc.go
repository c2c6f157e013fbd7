// Package preflight provides readiness checks for the tools, credentials and
// paths onemin depends on.
//
// The doctor command runs RunAll and CheckSystemDeps and prints the results;
// the watch command runs RunAll once before it starts so a missing
// credential file is reported up front instead of at the first upload.
package preflight
