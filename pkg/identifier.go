package pycore

// Assignment records one occurrence of a name inside a SourceIdentifier's owning
// frame: the token where it occurs, its inferred type, and whether the occurrence is
// a declaration (the name's first binding) or a later reference.
type Assignment struct {
	Token         TokenHandle
	Type          TypeInfo
	IsDeclaration bool
}

// SourceIdentifier owns the ordered list of assignments for one name visible in a
// frame.
type SourceIdentifier struct {
	Name        string
	Assignments []Assignment
}

// LatestType returns the most recently inferred type for this identifier, or
// Unknown() if it has no assignments yet.
func (id *SourceIdentifier) LatestType() TypeInfo {
	if len(id.Assignments) == 0 {
		return Unknown()
	}
	return id.Assignments[len(id.Assignments)-1].Type
}

func (id *SourceIdentifier) addAssignment(a Assignment) {
	id.Assignments = append(id.Assignments, a)
}
