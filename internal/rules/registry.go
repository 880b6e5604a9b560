package rules

// Catalog returns fresh instances of every rule in declaration order. The
// position of a rule in this list is its id for the lifetime of a registry.
func Catalog() []Rule {
	return []Rule{
		&ObjectDataNames{},
		&BoneNames{},
	}
}
