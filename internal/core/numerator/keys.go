package numerator

// Keyspace builds store keys. An optional namespace isolates several
// deployments sharing one backend.
type Keyspace struct {
	Namespace string
}

// RuleKey is where the JSON rule of prefix lives.
func (k Keyspace) RuleKey(prefix string) string {
	return k.join("prefix_rule:" + prefix)
}

// SequenceKey is the counter of prefix.
func (k Keyspace) SequenceKey(prefix string) string {
	return k.join("seq:" + prefix)
}

// LockKey guards lease acquisition for prefix.
func (k Keyspace) LockKey(prefix string) string {
	return k.join("lock:seq:" + prefix)
}

func (k Keyspace) join(key string) string {
	if k.Namespace == "" {
		return key
	}
	return k.Namespace + ":" + key
}
