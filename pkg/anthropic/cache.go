package anthropic

// BuildCachedSystemBlocks returns the instruction as a single system block
// with an ephemeral cache breakpoint.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
