// Package taxonomy defines the closed set of canonical SQL error tags,
// their taxonomy categories, and the SQLSTATE lookup tables used to map
// live engine errors into the same tag space.
//
// Every tag value is "{prefix}_{name}"; the prefix alone determines the
// taxonomy category, so a tag can never drift into a foreign category.
package taxonomy

// Tag is a canonical SQL error tag. The set of valid tags is fixed at
// build time; producers must not invent new values.
type Tag string

// Category is a coarse defect class derived from a tag's prefix.
type Category string

// Taxonomy categories.
const (
	CategorySyntax      Category = "syntax"
	CategorySemantic    Category = "semantic"
	CategoryLogical     Category = "logical"
	CategoryJoinRelated Category = "join_related"
	CategoryAggregation Category = "aggregation"
	CategoryFilter      Category = "filter_conditions"
	CategoryValue       Category = "value_representation"
	CategorySubquery    Category = "subquery_formulation"
	CategorySetOps      Category = "set_operations"
	CategoryStructural  Category = "structural"
)

// Syntax tags.
const (
	TagSyntaxError        Tag = "syntax_error"
	TagUnbalancedTokens   Tag = "syntax_unbalanced_tokens"
	TagTrailingDelimiter  Tag = "syntax_trailing_delimiter"
	TagKeywordMisuse      Tag = "syntax_keyword_misuse"
	TagUnterminatedString Tag = "syntax_unterminated_string"
	TagInvalidToken       Tag = "syntax_invalid_token"
	TagUnsupportedDialect Tag = "syntax_unsupported_dialect"
	TagInvalidName        Tag = "syntax_invalid_name"
	TagInvalidColumnDef   Tag = "syntax_invalid_column_definition"
)

// Semantic (schema) tags.
const (
	TagHallucinationTable   Tag = "schema_hallucination_table"
	TagHallucinationColumn  Tag = "schema_hallucination_col"
	TagAmbiguousColumn      Tag = "schema_ambiguous_col"
	TagTypeMismatch         Tag = "schema_type_mismatch"
	TagSchemaUnknownError   Tag = "schema_unknown_error"
	TagDuplicateObject      Tag = "schema_duplicate_object"
	TagUndefinedFunction    Tag = "schema_undefined_function"
	TagDatatypeMismatch     Tag = "schema_datatype_mismatch"
	TagIncorrectForeignKey  Tag = "schema_incorrect_foreign_key"
)

// Logical tags.
const (
	TagGroupingError       Tag = "logical_grouping_error"
	TagLogicalAggregation  Tag = "logical_aggregation_error"
	TagWindowingError      Tag = "logical_windowing_error"
	TagIntegrityViolation  Tag = "logical_integrity_violation"
	TagForeignKeyViolation Tag = "logical_foreign_key_violation"
	TagUniqueViolation     Tag = "logical_unique_violation"
	TagCheckViolation      Tag = "logical_check_violation"
)

// Join tags.
const (
	TagMissingJoin        Tag = "join_missing_join"
	TagWrongJoinType      Tag = "join_wrong_join_type"
	TagExtraTable         Tag = "join_extra_table"
	TagJoinConditionError Tag = "join_condition_error"
)

// Aggregation tags.
const (
	TagMissingGroupBy   Tag = "aggregation_missing_groupby"
	TagMisuseHaving     Tag = "aggregation_misuse_having"
	TagAggregationError Tag = "aggregation_error"
)

// Filter tags.
const (
	TagIncorrectWhereColumn Tag = "filter_incorrect_where_column"
	TagFilterTypeMismatch   Tag = "filter_type_mismatch_where"
	TagMissingWhere         Tag = "filter_missing_where"
)

// Value representation tags.
const (
	TagHardcodedValue      Tag = "value_hardcoded_value"
	TagValueFormatMismatch Tag = "value_format_mismatch"
)

// Subquery tags.
const (
	TagUnusedSubquery       Tag = "subquery_unused_subquery"
	TagIncorrectCorrelation Tag = "subquery_incorrect_correlation"
	TagSubqueryError        Tag = "subquery_error"
)

// Set operation tags.
const (
	TagUnionError        Tag = "set_union_error"
	TagIntersectionError Tag = "set_intersection_error"
	TagExceptError       Tag = "set_except_error"
)

// Structural tags.
const (
	TagMissingOrderBy  Tag = "structural_missing_orderby"
	TagMissingLimit    Tag = "structural_missing_limit"
	TagStructuralError Tag = "structural_error"
)

// allTags is the closed tag enumeration in declaration order. Order matters:
// TagsForCategory derives its per-category slices from it.
var allTags = []Tag{
	TagSyntaxError, TagUnbalancedTokens, TagTrailingDelimiter,
	TagKeywordMisuse, TagUnterminatedString, TagInvalidToken,
	TagUnsupportedDialect, TagInvalidName, TagInvalidColumnDef,

	TagHallucinationTable, TagHallucinationColumn, TagAmbiguousColumn,
	TagTypeMismatch, TagSchemaUnknownError, TagDuplicateObject,
	TagUndefinedFunction, TagDatatypeMismatch, TagIncorrectForeignKey,

	TagGroupingError, TagLogicalAggregation, TagWindowingError,
	TagIntegrityViolation, TagForeignKeyViolation, TagUniqueViolation,
	TagCheckViolation,

	TagMissingJoin, TagWrongJoinType, TagExtraTable, TagJoinConditionError,

	TagMissingGroupBy, TagMisuseHaving, TagAggregationError,

	TagIncorrectWhereColumn, TagFilterTypeMismatch, TagMissingWhere,

	TagHardcodedValue, TagValueFormatMismatch,

	TagUnusedSubquery, TagIncorrectCorrelation, TagSubqueryError,

	TagUnionError, TagIntersectionError, TagExceptError,

	TagMissingOrderBy, TagMissingLimit, TagStructuralError,
}

// prefixToCategory maps a tag value prefix (text before the first '_')
// to its taxonomy category.
var prefixToCategory = map[string]Category{
	"syntax":     CategorySyntax,
	"schema":     CategorySemantic,
	"logical":    CategoryLogical,
	"join":       CategoryJoinRelated,
	"aggregation": CategoryAggregation,
	"filter":     CategoryFilter,
	"value":      CategoryValue,
	"subquery":   CategorySubquery,
	"set":        CategorySetOps,
	"structural": CategoryStructural,
}

var (
	validTags      map[Tag]struct{}
	tagsByCategory map[Category][]Tag
)

func init() {
	validTags = make(map[Tag]struct{}, len(allTags))
	tagsByCategory = make(map[Category][]Tag)
	for _, t := range allTags {
		validTags[t] = struct{}{}
		c := t.Category()
		tagsByCategory[c] = append(tagsByCategory[c], t)
	}
}

// Tags returns the full tag enumeration in declaration order.
// The returned slice must not be modified.
func Tags() []Tag { return allTags }

// IsValid reports whether t is a member of the closed tag set.
func (t Tag) IsValid() bool {
	_, ok := validTags[t]
	return ok
}

// Category returns the taxonomy category derived from the tag's prefix.
// Total over the closed tag set; for a valid tag it never returns "".
func (t Tag) Category() Category {
	prefix, _, _ := cutPrefix(string(t))
	if c, ok := prefixToCategory[prefix]; ok {
		return c
	}
	return CategorySyntax
}

// CategoryForTag resolves the category for an arbitrary tag string, for
// example one read back from persisted data. Valid tags resolve via the
// enum; unknown strings fall back to the prefix heuristic. Returns
// ok=false when neither resolves. Never panics.
func CategoryForTag(tag string) (Category, bool) {
	if Tag(tag).IsValid() {
		return Tag(tag).Category(), true
	}
	prefix, _, _ := cutPrefix(tag)
	c, ok := prefixToCategory[prefix]
	return c, ok
}

// Normalize validates a tag string from an external producer. Unknown
// values are rejected, not silently accepted.
func Normalize(tag string) (Tag, bool) {
	t := Tag(tag)
	return t, t.IsValid()
}

// TagsForCategory returns the tags belonging to a category, in the
// enum's declaration order. The returned slice must not be modified.
func TagsForCategory(c Category) []Tag {
	return tagsByCategory[c]
}

func cutPrefix(s string) (prefix, rest string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
