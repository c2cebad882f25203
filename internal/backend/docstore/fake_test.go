package docstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory DynamoDB that understands the expressions the
// store sends. Query pages hold at most pageSize items.
type fakeDynamo struct {
	mu       sync.Mutex
	exists   bool
	items    map[string]map[string]map[string]ddbtypes.AttributeValue
	pageSize int
	queries  []*dynamodb.QueryInput
}

func newFakeDynamo(exists bool) *fakeDynamo {
	return &fakeDynamo{
		exists:   exists,
		items:    map[string]map[string]map[string]ddbtypes.AttributeValue{},
		pageSize: 2,
	}
}

func str(av ddbtypes.AttributeValue) string {
	if s, ok := av.(*ddbtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func missingTable() error {
	return &ddbtypes.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
}

func (f *fakeDynamo) partition(pk string) map[string]map[string]ddbtypes.AttributeValue {
	p, ok := f.items[pk]
	if !ok {
		p = map[string]map[string]ddbtypes.AttributeValue{}
		f.items[pk] = p
	}
	return p
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, missingTable()
	}
	f.queries = append(f.queries, in)

	p := f.partition(str(in.ExpressionAttributeValues[":pk"]))
	keys := make([]string, 0, len(p))
	for sk := range p {
		keys = append(keys, sk)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := str(in.ExclusiveStartKey["sk"])
		start = sort.SearchStrings(keys, last) + 1
	}
	end := min(start+f.pageSize, len(keys))

	out := &dynamodb.QueryOutput{}
	for _, sk := range keys[start:end] {
		item := p[sk]
		if f.passes(in, item) {
			out.Items = append(out.Items, item)
		}
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{
			"pk": in.ExpressionAttributeValues[":pk"],
			"sk": &ddbtypes.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (f *fakeDynamo) passes(in *dynamodb.QueryInput, item map[string]ddbtypes.AttributeValue) bool {
	if in.FilterExpression == nil {
		return true
	}
	attr := str(item[in.ExpressionAttributeNames["#f"]])
	v := str(in.ExpressionAttributeValues[":v"])
	switch aws.ToString(in.FilterExpression) {
	case "#f = :v":
		return attr == v
	case "begins_with(#f, :v)":
		return strings.HasPrefix(attr, v)
	}
	return false
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, missingTable()
	}
	return &dynamodb.GetItemOutput{Item: f.partition(str(in.Key["pk"]))[str(in.Key["sk"])]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, missingTable()
	}
	p := f.partition(str(in.Item["pk"]))
	sk := str(in.Item["sk"])
	_, found := p[sk]
	switch aws.ToString(in.ConditionExpression) {
	case "attribute_not_exists(sk)":
		if found {
			return nil, &ddbtypes.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	case "attribute_exists(sk)":
		if !found {
			return nil, &ddbtypes.ConditionalCheckFailedException{Message: aws.String("missing")}
		}
	}
	p[sk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, missingTable()
	}
	p := f.partition(str(in.Key["pk"]))
	sk := str(in.Key["sk"])
	item, ok := p[sk]
	if !ok {
		item = map[string]ddbtypes.AttributeValue{"pk": in.Key["pk"], "sk": in.Key["sk"]}
	}
	var seq int64
	if n, ok := item["seq"].(*ddbtypes.AttributeValueMemberN); ok {
		seq, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	seq++
	item["seq"] = &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(seq, 10)}
	p[sk] = item
	return &dynamodb.UpdateItemOutput{
		Attributes: map[string]ddbtypes.AttributeValue{"seq": item["seq"]},
	}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, missingTable()
	}
	p := f.partition(str(in.Key["pk"]))
	sk := str(in.Key["sk"])
	old := p[sk]
	delete(p, sk)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, missingTable()
	}
	return &dynamodb.DescribeTableOutput{
		Table: &ddbtypes.TableDescription{
			TableName:   in.TableName,
			TableStatus: ddbtypes.TableStatusActive,
		},
	}, nil
}

func (f *fakeDynamo) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists = true
	return &dynamodb.CreateTableOutput{}, nil
}
