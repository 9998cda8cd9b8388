package usecase

// SortCandidates exposes the ranking order to the external test package.
var SortCandidates = sortCandidates
