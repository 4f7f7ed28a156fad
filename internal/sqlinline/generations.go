package sqlinline

const QInsertGeneration = `--sql 3f6c2a1e-8b4d-4c7a-9e52-1d0b7a6f4c93
insert into generations(
  id,
  task_id,
  prompt,
  style,
  refined_prompt,
  status,
  error_code,
  error_detail,
  created_at,
  finished_at
) values (
  $1::uuid,
  nullif($2::text, ''),
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  nullif($7::text, ''),
  nullif($8::text, ''),
  $9::timestamptz,
  $10::timestamptz
)
on conflict (id) do update set
  status = excluded.status,
  error_code = excluded.error_code,
  error_detail = excluded.error_detail,
  finished_at = excluded.finished_at;
`

const QInsertGeneratedAsset = `--sql 9a2e7d40-5c1b-4f8e-b3a6-0e4d2c7f81b5
insert into generated_assets(
  id,
  generation_id,
  variant_index,
  variant,
  storage_id,
  public_url,
  source_url,
  created_at
) values (
  gen_random_uuid(),
  $1::uuid,
  $2::int,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  now()
)
on conflict (generation_id, variant_index) do nothing;
`

const QSelectGeneration = `--sql 6b1f0c8e-2d7a-4e93-a5c4-8f3e1b9d2a70
select id, coalesce(task_id, ''), prompt, style, refined_prompt, status,
  coalesce(error_code, ''), coalesce(error_detail, ''), created_at, finished_at
from generations
where id = $1::uuid
limit 1;
`

const QListGeneratedAssets = `--sql c4d8e2a6-7f1b-4b3c-9d05-2e6a8f1c3b47
select variant_index, variant, storage_id, public_url, source_url
from generated_assets
where generation_id = $1::uuid
order by variant_index asc;
`
