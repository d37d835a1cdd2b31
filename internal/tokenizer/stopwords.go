package tokenizer

var englishStopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
	"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
	"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so",
	"such", "into", "about", "between", "through", "during", "before", "after", "above", "below",
	"out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
}
