package store

// Declare database key prefix for objects
const (
	PrefixAccountAgeWitness = "account_age_witness:"
)
